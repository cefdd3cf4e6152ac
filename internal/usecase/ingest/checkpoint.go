package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Checkpoint фиксирует прогресс пакетной обработки терминов.
// Повторный запуск продолжает с Processed, поэтому обработка идемпотентна.
type Checkpoint struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// LoadCheckpoint читает чекпоинт; отсутствующий файл — нулевой прогресс.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint: %w", err)
	}
	return cp, nil
}

// SaveCheckpoint атомарно записывает чекпоинт.
func SaveCheckpoint(path string, cp Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// ClearCheckpoint удаляет файл после успешного прогона.
func ClearCheckpoint(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
