package gates

import "fmt"

// Operation is a semantic tool-call shape the Deterministic Tool Gateway
// recognizes: a fixed, closed set of payload shapes rather than an open
// string command, so a call's structure can be validated before its
// params reach a per-tool JSON Schema.
type Operation string

const (
	OpFilesystemRead  Operation = "FS_READ"
	OpFilesystemWrite Operation = "FS_WRITE"
	OpNetworkGet      Operation = "NET_GET"
	OpExecRun         Operation = "EXEC_RUN"
)

// ValidateOperation checks that payload has the shape op requires. It
// catches structurally malformed calls (wrong type, missing required
// keys) ahead of any schema or policy check.
func ValidateOperation(op Operation, payload any) error {
	switch op {
	case OpFilesystemRead:
		if _, ok := payload.(string); ok {
			return nil
		}
		m, ok := payload.(map[string]any)
		if !ok {
			return fmt.Errorf("invalid payload for %s: expected string or map with path", op)
		}
		if _, hasPath := m["path"]; !hasPath {
			return fmt.Errorf("invalid payload for %s: missing 'path'", op)
		}
	case OpFilesystemWrite:
		m, ok := payload.(map[string]any)
		if !ok {
			return fmt.Errorf("invalid payload for %s: expected map", op)
		}
		if _, hasPath := m["path"]; !hasPath {
			return fmt.Errorf("invalid payload for %s: missing 'path'", op)
		}
		if _, hasContent := m["content"]; !hasContent {
			return fmt.Errorf("invalid payload for %s: missing 'content'", op)
		}
	case OpNetworkGet:
		if _, ok := payload.(string); !ok {
			return fmt.Errorf("invalid payload for %s: expected string URL", op)
		}
	case OpExecRun:
		m, ok := payload.(map[string]any)
		if !ok {
			return fmt.Errorf("invalid payload for %s: expected map", op)
		}
		if _, hasCmd := m["cmd"]; !hasCmd {
			return fmt.Errorf("invalid payload for %s: missing 'cmd'", op)
		}
	default:
		return fmt.Errorf("unknown or unauthorized operation: %s", op)
	}
	return nil
}
