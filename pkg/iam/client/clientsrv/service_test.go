package clientsrv_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam/client"
	"github.com/Abraxas-365/keygate/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/Abraxas-365/keygate/pkg/ptrx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClients struct {
	mu      sync.Mutex
	clients map[string]client.Client
	failure error
}

func newMemClients() *memClients {
	return &memClients{clients: map[string]client.Client{}}
}

func (m *memClients) Create(_ context.Context, c client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *memClients) FindByID(_ context.Context, id string) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[id]; ok {
		return &c, nil
	}
	return nil, client.ErrClientNotFound()
}

func (m *memClients) FindByName(_ context.Context, name kernel.ClientName) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	for _, c := range m.clients {
		if c.ClientName == name {
			return &c, nil
		}
	}
	return nil, client.ErrClientNotFound()
}

func (m *memClients) ExistsByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.clients[id]
	return ok, nil
}

func (m *memClients) ExistsByName(ctx context.Context, name kernel.ClientName) (bool, error) {
	_, err := m.FindByName(ctx, name)
	if errx.IsCode(err, client.CodeClientNotFound) {
		return false, nil
	}
	return err == nil, err
}

func setup(t *testing.T) (*clientsrv.Service, *clientsrv.Validator, *memClients) {
	t.Helper()
	repo := newMemClients()
	hasher := credential.NewHasher(credential.DefaultIterations)
	return clientsrv.NewService(repo, hasher, token.NewGenerator()), clientsrv.NewValidator(repo, hasher), repo
}

func TestValidateWithoutClientID(t *testing.T) {
	_, v, _ := setup(t)
	assert.NoError(t, v.Validate(context.Background(), nil, ptrx.String("anything")))
}

func TestValidateUnknownClient(t *testing.T) {
	_, v, _ := setup(t)
	err := v.Validate(context.Background(), ptrx.String("ghost"), nil)
	assert.True(t, errx.IsCode(err, client.CodeInvalidCredentials))
}

func TestValidateNoPasswordClient(t *testing.T) {
	svc, v, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, clientsrv.RegisterRequest{Name: "web"})
	require.NoError(t, err)

	assert.NoError(t, v.Validate(ctx, ptrx.String("web"), nil))
	assert.NoError(t, v.Validate(ctx, ptrx.String("web"), ptrx.String("ignored")))
}

func TestValidateSecretClient(t *testing.T) {
	svc, v, _ := setup(t)
	ctx := context.Background()

	c, err := svc.Register(ctx, clientsrv.RegisterRequest{Name: "api", Secret: ptrx.String("qwerty")})
	require.NoError(t, err)
	assert.False(t, c.NoPassword())

	assert.NoError(t, v.Validate(ctx, ptrx.String("api"), ptrx.String("qwerty")))
	assert.True(t, errx.IsCode(v.Validate(ctx, ptrx.String("api"), ptrx.String("wrong")), client.CodeInvalidCredentials))
	assert.True(t, errx.IsCode(v.Validate(ctx, ptrx.String("api"), nil), client.CodeInvalidCredentials))
}

func TestValidateStoreFailure(t *testing.T) {
	_, v, repo := setup(t)
	repo.failure = errors.New("connection lost")

	err := v.Validate(context.Background(), ptrx.String("api"), nil)
	require.Error(t, err)
	assert.False(t, errx.IsCode(err, client.CodeInvalidCredentials))
}

func TestRegisterDuplicateName(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, clientsrv.RegisterRequest{Name: "api"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, clientsrv.RegisterRequest{Name: "api"})
	assert.True(t, errx.IsCode(err, client.CodeAlreadyExists))
}
