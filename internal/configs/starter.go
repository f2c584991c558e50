package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

// Starter formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// DefaultProvider is used by Starter when none is given.
const DefaultProvider = "aws"

// Starter returns the configuration written by WriteStarter for provider.
func Starter(provider string) *Config {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = DefaultProvider
	}
	return &Config{
		Provider:    provider,
		DefaultMode: ModeEncrypt,
		Include: []string{
			"src/main/resources/**/*.properties",
			"src/main/resources/**/*.yml",
			"src/main/resources/**/*.env",
		},
		Exclude:     []string{"target/**", "build/**", "node_modules/**", ".git/**"},
		JSON:        false,
		AutoDetect:  true,
		KMS:         starterKMS(provider),
		SecretStore: provider,
		Secrets:     starterSecrets(provider),
	}
}

func starterKMS(provider string) map[string]string {
	switch provider {
	case "aws":
		return map[string]string{"region": "us-west-2", "keyId": "alias/your-key-alias"}
	case "azure":
		return map[string]string{"keyId": "https://<key-vault-name>.vault.azure.net/keys/<key-name>"}
	case "gcp":
		return map[string]string{
			"project":  "your-gcp-project",
			"location": "us-central1",
			"keyRing":  "app-secrets",
			"key":      "primary",
		}
	case "oci":
		home, _ := os.UserHomeDir()
		return map[string]string{
			"configFile": filepath.Join(home, ".oci", "config"),
			"profile":    "DEFAULT",
			"endpoint":   "https://<vault>-crypto.kms.<region>.oraclecloud.com",
			"region":     "us-ashburn-1",
			"vault":      "<vault>",
			"keyId":      "ocid1.key.oc1..<uniqueId>",
		}
	case "local":
		return map[string]string{"key": "<base64 32-byte key>"}
	default:
		return map[string]string{"keyId": "replace-with-your-key-id"}
	}
}

func starterSecrets(provider string) map[string]string {
	switch provider {
	case "aws":
		return map[string]string{"region": "us-west-2"}
	case "azure":
		return map[string]string{"vaultUrl": "https://<key-vault-name>.vault.azure.net"}
	case "gcp":
		return map[string]string{"project": "your-gcp-project"}
	case "oci":
		return map[string]string{
			"compartmentId": "ocid1.compartment.oc1..<uniqueId>",
			"vaultId":       "ocid1.vault.oc1..<uniqueId>",
			"keyId":         "ocid1.key.oc1..<uniqueId>",
		}
	default:
		return map[string]string{}
	}
}

// WriteStarter writes a starter config for provider into dir in the given
// format (yaml when empty) and returns its path. It refuses to replace any
// existing config file in dir.
func WriteStarter(dir, provider, format string) (string, error) {
	if Exists(dir) {
		return "", fmt.Errorf("%w in %s", kerrors.ErrConfigExists, dir)
	}
	cfg := Starter(provider)

	switch strings.ToLower(format) {
	case "", FormatYAML, "yml":
		path := filepath.Join(dir, ".cloudencrypt.yml")
		return path, saveYAML(path, cfg)
	case FormatTOML:
		path := filepath.Join(dir, ".cloudencrypt.toml")
		return path, SaveTOML(path, cfg)
	default:
		return "", fmt.Errorf("%w: format %q must be yaml or toml", kerrors.ErrInvalidSetting, format)
	}
}

func saveYAML(path string, data interface{}) error {
	file, err := createNew(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
