package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v60/common"
	"github.com/oracle/oci-go-sdk/v60/keymanagement"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

const (
	OCIName           = "oci"
	defaultOCIProfile = "DEFAULT"
)

// ociCryptoAPI is the subset of keymanagement.KmsCryptoClient used here.
type ociCryptoAPI interface {
	Encrypt(ctx context.Context, request keymanagement.EncryptRequest) (keymanagement.EncryptResponse, error)
	Decrypt(ctx context.Context, request keymanagement.DecryptRequest) (keymanagement.DecryptResponse, error)
}

// OCI encrypts with an OCI Vault master key. Plaintext is sent base64
// encoded and the returned ciphertext is used as-is.
type OCI struct {
	client ociCryptoAPI
	keyID  string
}

// NewOCI wraps an existing crypto client.
func NewOCI(client ociCryptoAPI, keyID string) *OCI {
	return &OCI{client: client, keyID: keyID}
}

// OCIConfigProvider reads credentials from "configFile" (default
// ~/.oci/config) using "profile" (default DEFAULT).
func OCIConfigProvider(cfg cloud.Config) common.ConfigurationProvider {
	return common.CustomProfileConfigProvider(cfg.GetOr("configFile", ""), cfg.GetOr("profile", defaultOCIProfile))
}

// OCICryptoEndpoint returns "endpoint" when set, else builds the vault crypto
// endpoint from "region" and "vault" (or "vaultName").
func OCICryptoEndpoint(cfg cloud.Config) (string, error) {
	if endpoint, ok := cfg.Get("endpoint"); ok {
		return endpoint, nil
	}
	region, hasRegion := cfg.Get("region")
	vault, hasVault := cfg.Get("vault")
	if !hasVault {
		vault, hasVault = cfg.Get("vaultName")
	}
	if !hasRegion || !hasVault {
		return "", fmt.Errorf("%w: oci requires \"endpoint\" or \"region\" with \"vault\"", kerrors.ErrMissingSetting)
	}
	return fmt.Sprintf("https://%s-crypto.kms.%s.oraclecloud.com",
		strings.TrimSpace(vault), strings.ToLower(strings.TrimSpace(region))), nil
}

func newOCIEncryptor(ctx context.Context, cfg cloud.Config) (kms.Encryptor, error) {
	return newOCI(ctx, cfg)
}

func newOCIDecryptor(ctx context.Context, cfg cloud.Config) (kms.Decryptor, error) {
	return newOCI(ctx, cfg)
}

func newOCI(_ context.Context, cfg cloud.Config) (*OCI, error) {
	keyID, err := cfg.Required("keyId")
	if err != nil {
		return nil, err
	}
	endpoint, err := OCICryptoEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	client, err := keymanagement.NewKmsCryptoClientWithConfigurationProvider(OCIConfigProvider(cfg), endpoint)
	if err != nil {
		return nil, kerrors.Provider(OCIName, "create crypto client", err)
	}
	return NewOCI(client, keyID), nil
}

func (o *OCI) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := o.client.Encrypt(ctx, keymanagement.EncryptRequest{
		EncryptDataDetails: keymanagement.EncryptDataDetails{
			KeyId:     common.String(o.keyID),
			Plaintext: common.String(base64.StdEncoding.EncodeToString([]byte(plaintext))),
		},
	})
	if err != nil {
		return "", kerrors.Provider(OCIName, "encrypt", err)
	}
	return deref(resp.Ciphertext), nil
}

func (o *OCI) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	resp, err := o.client.Decrypt(ctx, keymanagement.DecryptRequest{
		DecryptDataDetails: keymanagement.DecryptDataDetails{
			KeyId:      common.String(o.keyID),
			Ciphertext: common.String(ciphertext),
		},
	})
	if err != nil {
		return "", kerrors.Provider(OCIName, "decrypt", err)
	}
	plain, err := base64.StdEncoding.DecodeString(deref(resp.Plaintext))
	if err != nil {
		return "", kerrors.Provider(OCIName, "decrypt", fmt.Errorf("plaintext is not valid base64: %w", err))
	}
	return string(plain), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
