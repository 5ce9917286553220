package server

import (
	"context"

	"github.com/blubywaff/ftag/internal/kvstore"
	"github.com/blubywaff/ftag/internal/repository"
	"github.com/blubywaff/ftag/internal/settings"
)

// sqlStorage serves client local storage from the local_storage table.
type sqlStorage struct {
	repo repository.LocalStorageRepository
}

func (p sqlStorage) ForClient(clientID string) settings.Storage {
	return repository.NewClientStorage(p.repo, clientID)
}

func (p sqlStorage) RemoveClient(ctx context.Context, clientID string) error {
	return p.repo.RemoveClient(ctx, clientID)
}

// boltStorage serves client local storage from a bolt file.
type boltStorage struct {
	*kvstore.Bolt
}

func (p boltStorage) ForClient(clientID string) settings.Storage {
	return p.Bolt.ForClient(clientID)
}

// memoryStorage serves client local storage from process memory.
type memoryStorage struct {
	*kvstore.Memory
}

func (p memoryStorage) ForClient(clientID string) settings.Storage {
	return p.Memory.ForClient(clientID)
}
