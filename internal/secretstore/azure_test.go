package secretstore

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

func azureNotFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "SecretNotFound"}
}

// fakeKeyVault models soft delete: a deleted secret becomes visible to
// GetDeletedSecret only after deletedAfter polls.
type fakeKeyVault struct {
	secrets      map[string]azsecrets.Secret
	deleted      map[string]int
	deletedAfter int
	purged       []string
}

func newFakeKeyVault() *fakeKeyVault {
	return &fakeKeyVault{secrets: map[string]azsecrets.Secret{}, deleted: map[string]int{}}
}

func (f *fakeKeyVault) SetSecret(_ context.Context, name string, p azsecrets.SetSecretParameters, _ *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.secrets[name] = azsecrets.Secret{Value: p.Value, Tags: p.Tags}
	return azsecrets.SetSecretResponse{}, nil
}

func (f *fakeKeyVault) GetSecret(_ context.Context, name string, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	s, ok := f.secrets[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, azureNotFound()
	}
	return azsecrets.GetSecretResponse{Secret: s}, nil
}

func (f *fakeKeyVault) DeleteSecret(_ context.Context, name string, _ *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	if _, ok := f.secrets[name]; !ok {
		return azsecrets.DeleteSecretResponse{}, azureNotFound()
	}
	delete(f.secrets, name)
	f.deleted[name] = 0
	return azsecrets.DeleteSecretResponse{}, nil
}

func (f *fakeKeyVault) GetDeletedSecret(_ context.Context, name string, _ *azsecrets.GetDeletedSecretOptions) (azsecrets.GetDeletedSecretResponse, error) {
	polls, ok := f.deleted[name]
	if !ok || polls < f.deletedAfter {
		f.deleted[name] = polls + 1
		return azsecrets.GetDeletedSecretResponse{}, azureNotFound()
	}
	return azsecrets.GetDeletedSecretResponse{}, nil
}

func (f *fakeKeyVault) PurgeDeletedSecret(_ context.Context, name string, _ *azsecrets.PurgeDeletedSecretOptions) (azsecrets.PurgeDeletedSecretResponse, error) {
	f.purged = append(f.purged, name)
	delete(f.deleted, name)
	return azsecrets.PurgeDeletedSecretResponse{}, nil
}

func TestAzureStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	fake := newFakeKeyVault()
	fake.deletedAfter = 2
	s := NewAzureStore(fake)
	s.pollInterval = time.Millisecond

	require.NoError(t, s.Put(ctx, "db", []byte("v1"), map[string]string{"env": "prod"}))
	assert.Equal(t, "prod", *fake.secrets["db"].Tags["env"])

	rec, err := s.Get(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), rec.Data())

	require.NoError(t, s.Delete(ctx, "db"))
	assert.Equal(t, []string{"db"}, fake.purged)

	_, err = s.Get(ctx, "db")
	assert.ErrorIs(t, err, kerrors.ErrSecretNotFound)
	assert.NoError(t, s.Delete(ctx, "db"))
}

func TestAzureStoreDeleteHonoursContext(t *testing.T) {
	fake := newFakeKeyVault()
	fake.deletedAfter = 1 << 30
	s := NewAzureStore(fake)
	s.pollInterval = time.Millisecond
	require.NoError(t, s.Put(context.Background(), "db", []byte("v"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Delete(ctx, "db")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, fake.purged)
}
