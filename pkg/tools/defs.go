package tools

import "github.com/argus-sec/argus/pkg/llm"

// Define builds a function tool definition with an object parameter schema.
func Define(name, description string, properties map[string]any, required ...string) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  llm.ObjectSchema(properties, required...),
	}
}

// String describes a string parameter.
func String(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Number describes a numeric parameter.
func Number(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

// Integer describes an integer parameter.
func Integer(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// Boolean describes a boolean parameter.
func Boolean(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// Enum describes a string parameter restricted to the given values.
func Enum(description string, values ...string) map[string]any {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]any{"type": "string", "description": description, "enum": enum}
}

// StringArray describes an array-of-strings parameter.
func StringArray(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}
