// Package configs loads and creates the project configuration file.
//
// The file is named .cloudencrypt.yml (or .yaml, or .toml) and is looked up
// in the working directory first and then in the home directory. The first
// file found wins; files are never merged.
//
//	provider: aws
//	defaultMode: encrypt
//	include:
//	  - src/main/resources/**/*.properties
//	exclude:
//	  - target/**
//	json: false
//	autoDetect: true
//	kms:
//	  region: us-west-2
//	  keyId: alias/app
//	secretStore: aws
//	secrets:
//	  region: us-west-2
//
// Scalar fields can be overridden from the environment with the CLOUDENCRYPT_
// prefix, for example CLOUDENCRYPT_PROVIDER=gcp or CLOUDENCRYPT_DEFAULTMODE=check.
//
// WriteStarter creates a starter file in YAML or TOML and never overwrites an
// existing one.
package configs
