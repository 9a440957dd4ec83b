// Package storage содержит реализации хранилища документа учётной книги.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmeshcher/payout-bot/internal/model"
)

// ErrUnavailable возвращается, когда хранилище недоступно или запись не удалась.
// Операция, получившая такую ошибку, считается не применённой.
var ErrUnavailable = errors.New("storage unavailable")

// FileStore хранит документ в одном JSON-файле.
// Commit атомарен: документ пишется во временный файл и подменяется rename,
// так что частично записанный документ не может быть прочитан.
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище по указанному пути.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает документ из файла. Отсутствие файла не является ошибкой:
// возвращается пустой документ (единственная автоинициализация в системе).
func (s *FileStore) Load(ctx context.Context) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewDocument(), nil
		}
		return nil, fmt.Errorf("%w: read document: %v", ErrUnavailable, err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrUnavailable, err)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]*model.User)
	}

	return doc, nil
}

// Commit атомарно записывает документ на диск.
func (s *FileStore) Commit(ctx context.Context, doc *model.Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode document: %v", ErrUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write document: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: sync document: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %v", ErrUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replace document: %v", ErrUnavailable, err)
	}

	return nil
}

// Close освобождает ресурсы хранилища. Для файлового хранилища их нет.
func (s *FileStore) Close() error {
	return nil
}
