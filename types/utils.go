package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func WriteToJSON(filename string, data interface{}) error {
	dir := filepath.Dir(filename)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}
	return os.WriteFile(filename, jsonData, 0o644)
}
