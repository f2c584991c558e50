package secretstore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// azureSecretsAPI is the subset of *azsecrets.Client used here.
type azureSecretsAPI interface {
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
	GetDeletedSecret(ctx context.Context, name string, options *azsecrets.GetDeletedSecretOptions) (azsecrets.GetDeletedSecretResponse, error)
	PurgeDeletedSecret(ctx context.Context, name string, options *azsecrets.PurgeDeletedSecretOptions) (azsecrets.PurgeDeletedSecretResponse, error)
}

// AzureStore keeps secrets in an Azure Key Vault.
type AzureStore struct {
	client azureSecretsAPI
	// pollInterval spaces checks for a soft delete to finish before purging.
	pollInterval time.Duration
}

// NewAzureStore wraps an existing client.
func NewAzureStore(client azureSecretsAPI) *AzureStore {
	return &AzureStore{client: client, pollInterval: 2 * time.Second}
}

// openAzure requires "vaultUrl" and authenticates with DefaultAzureCredential.
func openAzure(_ context.Context, cfg cloud.Config) (Store, error) {
	vaultURL, err := cfg.Required("vaultUrl")
	if err != nil {
		return nil, err
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, kerrors.Provider("azure", "create credential", err)
	}
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, kerrors.Provider("azure", "create secrets client", err)
	}
	return NewAzureStore(client), nil
}

func (s *AzureStore) Put(ctx context.Context, name string, data []byte, metadata map[string]string) error {
	body, err := Encode(data, metadata)
	if err != nil {
		return err
	}
	params := azsecrets.SetSecretParameters{Value: to.Ptr(string(body))}
	if len(metadata) > 0 {
		params.Tags = make(map[string]*string, len(metadata))
		for k, v := range metadata {
			params.Tags[k] = to.Ptr(v)
		}
	}
	_, err = s.client.SetSecret(ctx, name, params, nil)
	return kerrors.Provider("azure", "set secret", err)
}

func (s *AzureStore) Get(ctx context.Context, name string) (Record, error) {
	resp, err := s.client.GetSecret(ctx, name, "", nil)
	if isAzureNotFound(err) {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, kerrors.Provider("azure", "get secret", err)
	}
	if resp.Value == nil {
		return NewRecord(nil, nil), nil
	}
	return Decode([]byte(*resp.Value))
}

// Delete soft-deletes the secret, waits until the vault lists it as deleted,
// then purges it.
func (s *AzureStore) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteSecret(ctx, name, nil)
	if isAzureNotFound(err) {
		return nil
	}
	if err != nil {
		return kerrors.Provider("azure", "delete secret", err)
	}

	for {
		_, err := s.client.GetDeletedSecret(ctx, name, nil)
		if err == nil {
			break
		}
		if !isAzureNotFound(err) {
			return kerrors.Provider("azure", "get deleted secret", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}

	_, err = s.client.PurgeDeletedSecret(ctx, name, nil)
	return kerrors.Provider("azure", "purge deleted secret", err)
}

func (s *AzureStore) Close() error { return nil }

func isAzureNotFound(err error) bool {
	var re *azcore.ResponseError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}
