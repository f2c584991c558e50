package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	gcpkms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const GCPName = "gcp"

// gcpKMSAPI is the subset of *kms.KeyManagementClient used here.
type gcpKMSAPI interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
	Close() error
}

// GCP encrypts with a Cloud KMS symmetric key.
type GCP struct {
	client  gcpKMSAPI
	keyName string
}

// NewGCP wraps an existing client. keyName is the full crypto key resource name.
func NewGCP(client gcpKMSAPI, keyName string) *GCP {
	return &GCP{client: client, keyName: keyName}
}

// GCPKeyName builds projects/<p>/locations/<l>/keyRings/<r>/cryptoKeys/<k>
// from the project, location, keyRing and key settings.
func GCPKeyName(cfg cloud.Config) (string, error) {
	parts := make([]string, 0, 4)
	for _, key := range []string{"project", "location", "keyRing", "key"} {
		v, err := cfg.Required(key)
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return fmt.Sprintf("projects/%s/locations/%s/keyRings/%s/cryptoKeys/%s",
		parts[0], parts[1], parts[2], parts[3]), nil
}

func newGCPEncryptor(ctx context.Context, cfg cloud.Config) (kms.Encryptor, error) {
	return newGCP(ctx, cfg)
}

func newGCPDecryptor(ctx context.Context, cfg cloud.Config) (kms.Decryptor, error) {
	return newGCP(ctx, cfg)
}

func newGCP(ctx context.Context, cfg cloud.Config) (*GCP, error) {
	name, err := GCPKeyName(cfg)
	if err != nil {
		return nil, err
	}
	client, err := gcpkms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, kerrors.Provider(GCPName, "create client", err)
	}
	return NewGCP(client, name), nil
}

func (g *GCP) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := g.client.Encrypt(ctx, &kmspb.EncryptRequest{Name: g.keyName, Plaintext: []byte(plaintext)})
	if err != nil {
		return "", kerrors.Provider(GCPName, "encrypt", err)
	}
	return base64.StdEncoding.EncodeToString(resp.GetCiphertext()), nil
}

func (g *GCP) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := decodeCiphertext(GCPName, ciphertext)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Decrypt(ctx, &kmspb.DecryptRequest{Name: g.keyName, Ciphertext: raw})
	if err != nil {
		return "", kerrors.Provider(GCPName, "decrypt", err)
	}
	return string(resp.GetPlaintext()), nil
}

// Close releases the gRPC connection.
func (g *GCP) Close() error {
	return g.client.Close()
}
