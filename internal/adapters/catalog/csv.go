package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"semantic-sensei/internal/domain"
)

// Load читает каталог C3-категорий из CSV с заголовком C3Name,C3Code.
func Load(path string) ([]domain.CategoryRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse разбирает CSV-каталог из произвольного источника.
func Parse(r io.Reader) ([]domain.CategoryRef, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	nameIdx, codeIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "C3Name":
			nameIdx = i
		case "C3Code":
			codeIdx = i
		}
	}
	if nameIdx < 0 || codeIdx < 0 {
		return nil, fmt.Errorf("catalog header must contain C3Name and C3Code, got %v", header)
	}

	var categories []domain.CategoryRef
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}
		if len(row) <= nameIdx || len(row) <= codeIdx {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		code := strings.TrimSpace(row[codeIdx])
		if name == "" || code == "" {
			continue
		}
		categories = append(categories, domain.CategoryRef{Code: code, Name: name})
	}
	return categories, nil
}

// Save записывает каталог в CSV с заголовком C3Name,C3Code.
func Save(path string, categories []domain.CategoryRef) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"C3Name", "C3Code"}); err != nil {
		return fmt.Errorf("write catalog header: %w", err)
	}
	for _, cat := range categories {
		if err := writer.Write([]string{cat.Name, cat.Code}); err != nil {
			return fmt.Errorf("write catalog row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// NameIndex строит отображение имени категории в код.
func NameIndex(categories []domain.CategoryRef) map[string]string {
	index := make(map[string]string, len(categories))
	for _, cat := range categories {
		if _, ok := index[cat.Name]; ok {
			continue
		}
		index[cat.Name] = cat.Code
	}
	return index
}
