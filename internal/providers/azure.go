package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const AzureName = "azure"

// azureKeysAPI is the subset of *azkeys.Client used here.
type azureKeysAPI interface {
	Encrypt(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.EncryptOptions) (azkeys.EncryptResponse, error)
	Decrypt(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.DecryptOptions) (azkeys.DecryptResponse, error)
}

// AzureKeyID is a parsed Key Vault key identifier.
type AzureKeyID struct {
	VaultURL string
	Name     string
	// Version is empty for the latest version.
	Version string
}

// ParseAzureKeyID splits https://<vault>/keys/<name>[/<version>].
func ParseAzureKeyID(keyID string) (AzureKeyID, error) {
	u, err := url.Parse(keyID)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return AzureKeyID{}, fmt.Errorf("%w: azure keyId %q is not a URL", kerrors.ErrInvalidSetting, keyID)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || len(segments) > 3 || segments[0] != "keys" || segments[1] == "" {
		return AzureKeyID{}, fmt.Errorf("%w: azure keyId %q must look like https://<vault>/keys/<name>[/<version>]",
			kerrors.ErrInvalidSetting, keyID)
	}
	id := AzureKeyID{VaultURL: u.Scheme + "://" + u.Host, Name: segments[1]}
	if len(segments) == 3 {
		id.Version = segments[2]
	}
	return id, nil
}

// Azure encrypts with a Key Vault RSA key.
type Azure struct {
	client    azureKeysAPI
	key       AzureKeyID
	algorithm azkeys.EncryptionAlgorithm
}

// NewAzure wraps an existing client.
func NewAzure(client azureKeysAPI, key AzureKeyID, algorithm azkeys.EncryptionAlgorithm) *Azure {
	return &Azure{client: client, key: key, algorithm: algorithm}
}

func newAzureEncryptor(ctx context.Context, cfg cloud.Config) (kms.Encryptor, error) {
	return newAzure(ctx, cfg)
}

func newAzureDecryptor(ctx context.Context, cfg cloud.Config) (kms.Decryptor, error) {
	return newAzure(ctx, cfg)
}

// newAzure requires "keyId". "algorithm" defaults to RSA-OAEP.
func newAzure(_ context.Context, cfg cloud.Config) (*Azure, error) {
	keyID, err := cfg.Required("keyId")
	if err != nil {
		return nil, err
	}
	key, err := ParseAzureKeyID(keyID)
	if err != nil {
		return nil, err
	}
	algorithm, err := azureAlgorithm(cfg.GetOr("algorithm", string(azkeys.EncryptionAlgorithmRSAOAEP)))
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, kerrors.Provider(AzureName, "create credential", err)
	}
	client, err := azkeys.NewClient(key.VaultURL, cred, nil)
	if err != nil {
		return nil, kerrors.Provider(AzureName, "create client", err)
	}
	return NewAzure(client, key, algorithm), nil
}

func azureAlgorithm(name string) (azkeys.EncryptionAlgorithm, error) {
	for _, a := range azkeys.PossibleEncryptionAlgorithmValues() {
		if strings.EqualFold(string(a), name) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: azure algorithm %q", kerrors.ErrInvalidSetting, name)
}

func (a *Azure) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := a.client.Encrypt(ctx, a.key.Name, a.key.Version, azkeys.KeyOperationParameters{
		Algorithm: to.Ptr(a.algorithm),
		Value:     []byte(plaintext),
	}, nil)
	if err != nil {
		return "", kerrors.Provider(AzureName, "encrypt", err)
	}
	return base64.StdEncoding.EncodeToString(resp.Result), nil
}

func (a *Azure) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := decodeCiphertext(AzureName, ciphertext)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Decrypt(ctx, a.key.Name, a.key.Version, azkeys.KeyOperationParameters{
		Algorithm: to.Ptr(a.algorithm),
		Value:     raw,
	}, nil)
	if err != nil {
		return "", kerrors.Provider(AzureName, "decrypt", err)
	}
	return string(resp.Result), nil
}
