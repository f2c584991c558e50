package secretstore

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// gcpSecretsAPI is the subset of *secretmanager.Client used here.
type gcpSecretsAPI interface {
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest, opts ...gax.CallOption) error
	Close() error
}

// GCPStore keeps secrets in Google Secret Manager under one project.
type GCPStore struct {
	client  gcpSecretsAPI
	project string
}

// NewGCPStore wraps an existing client.
func NewGCPStore(client gcpSecretsAPI, project string) *GCPStore {
	return &GCPStore{client: client, project: project}
}

func openGCP(ctx context.Context, cfg cloud.Config) (Store, error) {
	project, err := cfg.Required("project")
	if err != nil {
		return nil, err
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, kerrors.Provider("gcp", "create secret manager client", err)
	}
	return NewGCPStore(client, project), nil
}

func (s *GCPStore) secretName(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.project, name)
}

// Put creates the secret with automatic replication when it is missing, then
// adds a new version holding the payload.
func (s *GCPStore) Put(ctx context.Context, name string, data []byte, metadata map[string]string) error {
	if err := s.ensureSecret(ctx, name, metadata); err != nil {
		return err
	}
	body, err := Encode(data, metadata)
	if err != nil {
		return err
	}
	_, err = s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretName(name),
		Payload: &secretmanagerpb.SecretPayload{Data: body},
	})
	return kerrors.Provider("gcp", "add secret version", err)
}

func (s *GCPStore) ensureSecret(ctx context.Context, name string, metadata map[string]string) error {
	_, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{Name: s.secretName(name)})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return kerrors.Provider("gcp", "get secret", err)
	}
	_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + s.project,
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Labels: cloneMap(metadata),
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	return kerrors.Provider("gcp", "create secret", err)
}

func (s *GCPStore) Get(ctx context.Context, name string) (Record, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretName(name) + "/versions/latest",
	})
	if status.Code(err) == codes.NotFound {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, kerrors.Provider("gcp", "access secret version", err)
	}
	return Decode(resp.GetPayload().GetData())
}

func (s *GCPStore) Delete(ctx context.Context, name string) error {
	err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: s.secretName(name)})
	if err != nil && status.Code(err) != codes.NotFound {
		return kerrors.Provider("gcp", "delete secret", err)
	}
	return nil
}

func (s *GCPStore) Close() error {
	return s.client.Close()
}
