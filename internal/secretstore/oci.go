package secretstore

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/oracle/oci-go-sdk/v60/common"
	"github.com/oracle/oci-go-sdk/v60/secrets"
	"github.com/oracle/oci-go-sdk/v60/vault"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/providers"
)

const (
	ociDescription   = "Managed by cloud-encrypt"
	ociDeletionDelay = 2 * time.Minute
)

// ociVaultsAPI is the subset of vault.VaultsClient used here.
type ociVaultsAPI interface {
	ListSecrets(ctx context.Context, request vault.ListSecretsRequest) (vault.ListSecretsResponse, error)
	CreateSecret(ctx context.Context, request vault.CreateSecretRequest) (vault.CreateSecretResponse, error)
	UpdateSecret(ctx context.Context, request vault.UpdateSecretRequest) (vault.UpdateSecretResponse, error)
	ScheduleSecretDeletion(ctx context.Context, request vault.ScheduleSecretDeletionRequest) (vault.ScheduleSecretDeletionResponse, error)
}

// ociSecretsAPI is the subset of secrets.SecretsClient used here.
type ociSecretsAPI interface {
	GetSecretBundle(ctx context.Context, request secrets.GetSecretBundleRequest) (secrets.GetSecretBundleResponse, error)
}

// OCIStore keeps secrets in an OCI Vault. Names are resolved to OCIDs by
// listing active secrets in the compartment and vault.
type OCIStore struct {
	vaults        ociVaultsAPI
	secrets       ociSecretsAPI
	compartmentID string
	vaultID       string
	// keyID is the master key for new secrets. Only needed to create.
	keyID string
}

// NewOCIStore wraps existing clients.
func NewOCIStore(vaults ociVaultsAPI, secrets ociSecretsAPI, compartmentID, vaultID, keyID string) *OCIStore {
	return &OCIStore{vaults: vaults, secrets: secrets, compartmentID: compartmentID, vaultID: vaultID, keyID: keyID}
}

// openOCI requires "compartmentId" and "vaultId". "keyId" is required to
// create secrets, "region" overrides the profile region.
func openOCI(_ context.Context, cfg cloud.Config) (Store, error) {
	compartmentID, err := cfg.Required("compartmentId")
	if err != nil {
		return nil, err
	}
	vaultID, err := cfg.Required("vaultId")
	if err != nil {
		return nil, err
	}

	provider := providers.OCIConfigProvider(cfg)
	vc, err := vault.NewVaultsClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, kerrors.Provider("oci", "create vaults client", err)
	}
	sc, err := secrets.NewSecretsClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, kerrors.Provider("oci", "create secrets client", err)
	}
	if region, ok := cfg.Get("region"); ok {
		vc.SetRegion(region)
		sc.SetRegion(region)
	}
	return NewOCIStore(vc, sc, compartmentID, vaultID, cfg.GetOr("keyId", "")), nil
}

func (s *OCIStore) findSecretID(ctx context.Context, name string) (string, error) {
	resp, err := s.vaults.ListSecrets(ctx, vault.ListSecretsRequest{
		CompartmentId:  common.String(s.compartmentID),
		VaultId:        common.String(s.vaultID),
		Name:           common.String(name),
		LifecycleState: vault.SecretSummaryLifecycleStateActive,
		Limit:          common.Int(1),
	})
	if err != nil {
		return "", kerrors.Provider("oci", "list secrets", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil {
		return "", nil
	}
	return *resp.Items[0].Id, nil
}

// Put updates the secret when it exists and creates it otherwise. Metadata
// is stored as freeform tags.
func (s *OCIStore) Put(ctx context.Context, name string, data []byte, metadata map[string]string) error {
	body, err := Encode(data, metadata)
	if err != nil {
		return err
	}
	content := vault.Base64SecretContentDetails{
		Content: common.String(base64.StdEncoding.EncodeToString(body)),
		Stage:   vault.SecretContentDetailsStageCurrent,
	}

	id, err := s.findSecretID(ctx, name)
	if err != nil {
		return err
	}
	if id != "" {
		_, err = s.vaults.UpdateSecret(ctx, vault.UpdateSecretRequest{
			SecretId: common.String(id),
			UpdateSecretDetails: vault.UpdateSecretDetails{
				SecretContent: content,
				FreeformTags:  cloneMap(metadata),
			},
		})
		return kerrors.Provider("oci", "update secret", err)
	}

	if s.keyID == "" {
		return kerrors.MissingSetting("oci", "keyId")
	}
	_, err = s.vaults.CreateSecret(ctx, vault.CreateSecretRequest{
		CreateSecretDetails: vault.CreateSecretDetails{
			CompartmentId: common.String(s.compartmentID),
			VaultId:       common.String(s.vaultID),
			KeyId:         common.String(s.keyID),
			SecretName:    common.String(name),
			SecretContent: content,
			Description:   common.String(ociDescription),
			FreeformTags:  cloneMap(metadata),
		},
	})
	return kerrors.Provider("oci", "create secret", err)
}

func (s *OCIStore) Get(ctx context.Context, name string) (Record, error) {
	id, err := s.findSecretID(ctx, name)
	if err != nil {
		return Record{}, err
	}
	if id == "" {
		return Record{}, notFound(name)
	}

	resp, err := s.secrets.GetSecretBundle(ctx, secrets.GetSecretBundleRequest{
		SecretId: common.String(id),
		Stage:    secrets.GetSecretBundleStageCurrent,
	})
	if err != nil {
		if isOCINotFound(err) {
			return Record{}, notFound(name)
		}
		return Record{}, kerrors.Provider("oci", "get secret bundle", err)
	}

	var encoded *string
	switch c := resp.SecretBundleContent.(type) {
	case secrets.Base64SecretBundleContentDetails:
		encoded = c.Content
	case *secrets.Base64SecretBundleContentDetails:
		encoded = c.Content
	}
	if encoded == nil {
		return NewRecord(nil, nil), nil
	}
	raw, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		return Record{}, kerrors.Provider("oci", "decode secret bundle", err)
	}
	return Decode(raw)
}

// Delete schedules the secret for deletion two minutes from now.
func (s *OCIStore) Delete(ctx context.Context, name string) error {
	id, err := s.findSecretID(ctx, name)
	if err != nil || id == "" {
		return err
	}
	_, err = s.vaults.ScheduleSecretDeletion(ctx, vault.ScheduleSecretDeletionRequest{
		SecretId: common.String(id),
		ScheduleSecretDeletionDetails: vault.ScheduleSecretDeletionDetails{
			TimeOfDeletion: &common.SDKTime{Time: time.Now().Add(ociDeletionDelay)},
		},
	})
	if err != nil && !isOCINotFound(err) {
		return kerrors.Provider("oci", "schedule secret deletion", err)
	}
	return nil
}

func (s *OCIStore) Close() error { return nil }

func isOCINotFound(err error) bool {
	serviceErr, ok := common.IsServiceError(err)
	return ok && serviceErr.GetHTTPStatusCode() == 404
}
