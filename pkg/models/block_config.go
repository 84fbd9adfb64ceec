package models

// BlockConfigSchemas maps each block type to the JSON Schema its node
// config must satisfy. Block types without an entry accept any config
// (unrecognized and custom blocks fall back to an open map).
//
// The schemas are deliberately shallow: the validation core only enforces
// presence and primitive types of the fields the execution engine cannot
// run without. Everything else is the engine's concern.
func BlockConfigSchemas() map[BlockType]string {
	return map[BlockType]string{
		BlockTypeHTTPRequest: `{
			"type": "object",
			"required": ["url", "method"],
			"properties": {
				"url":    {"type": "string", "minLength": 1},
				"method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"]},
				"headers": {"type": "object"},
				"body":   {}
			}
		}`,
		BlockTypeWebhookCall: `{
			"type": "object",
			"required": ["url"],
			"properties": {
				"url": {"type": "string", "minLength": 1}
			}
		}`,
		BlockTypeNotification: `{
			"type": "object",
			"required": ["message"],
			"properties": {
				"message": {"type": "string", "minLength": 1},
				"channel": {"type": "string"}
			}
		}`,
		BlockTypeCustomCode: `{
			"type": "object",
			"required": ["code"],
			"properties": {
				"code":    {"type": "string", "minLength": 1},
				"timeout": {"type": "number"}
			}
		}`,
		BlockTypeScheduleTrigger: `{
			"type": "object",
			"required": ["cron"],
			"properties": {
				"cron": {"type": "string", "minLength": 1}
			}
		}`,
		BlockTypeCondition: `{
			"type": "object",
			"required": ["expression"],
			"properties": {
				"expression": {"type": "string", "minLength": 1}
			}
		}`,
	}
}

// RequiredConfigFields returns the required config keys for a block type,
// or nil when the block type carries no config schema.
func RequiredConfigFields(blockType BlockType) []string {
	switch blockType {
	case BlockTypeHTTPRequest:
		return []string{"url", "method"}
	case BlockTypeWebhookCall:
		return []string{"url"}
	case BlockTypeNotification:
		return []string{"message"}
	case BlockTypeCustomCode:
		return []string{"code"}
	case BlockTypeScheduleTrigger:
		return []string{"cron"}
	case BlockTypeCondition:
		return []string{"expression"}
	default:
		return nil
	}
}

// DefaultConfig synthesizes a minimal valid config for a block type.
// Used by auto-healing when a generated node is missing required fields.
func DefaultConfig(blockType BlockType) map[string]any {
	switch blockType {
	case BlockTypeHTTPRequest:
		return map[string]any{"url": "https://example.com", "method": "GET"}
	case BlockTypeWebhookCall:
		return map[string]any{"url": "https://example.com/hook"}
	case BlockTypeNotification:
		return map[string]any{"message": "Workflow notification"}
	case BlockTypeCustomCode:
		return map[string]any{"code": "// TODO: implement\nreturn input;"}
	case BlockTypeScheduleTrigger:
		return map[string]any{"cron": "0 * * * *"}
	case BlockTypeCondition:
		return map[string]any{"expression": "true"}
	default:
		return map[string]any{}
	}
}
