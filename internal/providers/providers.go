// Package providers implements the KMS backends registered under the names
// aws, gcp, azure, oci and local.
//
// Every constructor validates its settings before creating an SDK client, so
// a missing setting is reported without any network traffic. SDK failures
// are returned as *errors.ProviderError.
package providers

import (
	"encoding/base64"
	"fmt"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
	"github.com/PolarWolf314/cloudencrypt/internal/kms"
)

// RegisterBuiltins adds every backend in this package to r.
func RegisterBuiltins(r *kms.Registry) {
	r.Register(AWSName, kms.Factory{NewEncryptor: newAWSEncryptor, NewDecryptor: newAWSDecryptor})
	r.Register(GCPName, kms.Factory{NewEncryptor: newGCPEncryptor, NewDecryptor: newGCPDecryptor})
	r.Register(AzureName, kms.Factory{NewEncryptor: newAzureEncryptor, NewDecryptor: newAzureDecryptor})
	r.Register(OCIName, kms.Factory{NewEncryptor: newOCIEncryptor, NewDecryptor: newOCIDecryptor})
	r.Register(LocalName, kms.Factory{NewEncryptor: newLocalEncryptor, NewDecryptor: newLocalDecryptor})
}

// decodeCiphertext base64-decodes a ciphertext produced by one of the
// backends here.
func decodeCiphertext(provider, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s ciphertext is not valid base64", kerrors.ErrFormat, provider)
	}
	return raw, nil
}
