package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustfabric/trustfabric/internal/core/errors"
	"github.com/trustfabric/trustfabric/internal/core/ports"
)

// mapStore is a minimal in-memory blob store for fixtures.
type mapStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMapStore() *mapStore {
	return &mapStore{blobs: make(map[string][]byte)}
}

var _ ports.BlobStore = (*mapStore)(nil)

func (s *mapStore) Exists(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[path]
	return ok, nil
}

func (s *mapStore) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[path]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "%q", path)
	}
	return append([]byte(nil), data...), nil
}

func (s *mapStore) Write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = append([]byte(nil), data...)
	return nil
}

const testServiceID uint32 = 42

// newTestHierarchy bootstraps a complete hierarchy on example.net backed by
// an in-memory store: the trust root, the network authorities, service 42's
// authority, and its members and apps authorities, all persisted unencrypted.
func newTestHierarchy(t *testing.T) (*Hierarchy, *mapStore) {
	t.Helper()

	store := newMapStore()
	cfg := ports.DefaultConfiguration(testNetwork.Domain())
	h := NewHierarchy(testNetwork, cfg, store, nil)

	root, err := h.Root()
	require.NoError(t, err)
	require.NoError(t, root.CreateSelfSigned(cfg.Authority(ports.AuthorityRoot).SelfValidityDays, true))
	require.NoError(t, root.Save(nil, false))

	accounts, err := h.AccountsAuthority()
	bootstrapAuthority(t, h, mustAuthority(t, accounts, err))
	services, err := h.ServicesAuthority()
	bootstrapAuthority(t, h, mustAuthority(t, services, err))
	service, err := h.ServiceAuthority(testServiceID)
	bootstrapAuthority(t, h, mustAuthority(t, service, err))
	members, err := h.MembersAuthority(testServiceID)
	bootstrapAuthority(t, h, mustAuthority(t, members, err))
	apps, err := h.AppsAuthority(testServiceID)
	bootstrapAuthority(t, h, mustAuthority(t, apps, err))

	return h, store
}

func mustAuthority(t *testing.T, a *IssuingAuthority, err error) *IssuingAuthority {
	t.Helper()
	require.NoError(t, err)
	return a
}

// bootstrapAuthority has an authority's parent (loaded from the store) sign
// its certificate and persists the result.
func bootstrapAuthority(t *testing.T, h *Hierarchy, authority *IssuingAuthority) {
	t.Helper()

	parent, err := h.AuthorityForRole(authority.Role(), authority.ServiceID())
	require.NoError(t, err)
	require.NoError(t, parent.Load(true, nil))

	request, err := authority.CreateRequest(nil, false)
	require.NoError(t, err)
	signed, err := parent.Sign(request)
	require.NoError(t, err)
	require.NoError(t, authority.AbsorbSigned(signed.Certificate, signed.Chain))
	require.NoError(t, authority.Save(nil, false))
}

// loadedAuthority returns a fresh instance of the named hierarchy node with
// its certificate and key loaded from the store.
func loadedAuthority(t *testing.T, h *Hierarchy, get func() (*IssuingAuthority, error)) *IssuingAuthority {
	t.Helper()
	authority, err := get()
	require.NoError(t, err)
	require.NoError(t, authority.Load(true, nil))
	return authority
}
