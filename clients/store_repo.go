package clients

import (
	"context"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/storage"
)

// StoreRepo is a client registry backed by a storage.Store, so the same
// code serves the in-memory and redis deployments. Registrations never
// expire.
type StoreRepo struct {
	store storage.Store[*Client]
}

var _ Repo = (*StoreRepo)(nil)

func NewStoreRepo(store storage.Store[*Client]) *StoreRepo {
	return &StoreRepo{store: store}
}

func (r *StoreRepo) Get(clientID string) (*Client, error) {
	client, err := r.store.Get(context.Background(), clientID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, errors.Wrapf(ErrClientNotFound, "%q", clientID)
		}
		return nil, errors.Wrap(err, "[StoreRepo.Get] store lookup")
	}
	return client, nil
}

func (r *StoreRepo) Upsert(client *Client) error {
	if client == nil || client.ID == "" {
		return errors.New("[StoreRepo.Upsert] client id is required")
	}
	return r.store.Set(context.Background(), client.ID, client, 0)
}

func (r *StoreRepo) Delete(clientID string) error {
	return r.store.Delete(context.Background(), clientID)
}
