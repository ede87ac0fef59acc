package keyProvider

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// IKeyProvider hands out the hex private key for a signing account. The key
// is acquired on demand and never cached by the provider.
type IKeyProvider interface {
	PrivateKey(ctx context.Context) (string, error)
	Name() string
}

// EnvKeyProvider reads the key from an environment variable.
type EnvKeyProvider struct {
	Variable string
}

func NewEnvKeyProvider(variable string) *EnvKeyProvider {
	return &EnvKeyProvider{Variable: variable}
}

func (p *EnvKeyProvider) PrivateKey(_ context.Context) (string, error) {
	if p.Variable == "" {
		return "", fmt.Errorf("environment variable name cannot be empty")
	}
	key := strings.TrimSpace(os.Getenv(p.Variable))
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", p.Variable)
	}
	return key, nil
}

func (p *EnvKeyProvider) Name() string {
	return "env:" + p.Variable
}

// FileKeyProvider reads the key from a file containing the hex scalar.
type FileKeyProvider struct {
	Path string
}

func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{Path: path}
}

func (p *FileKeyProvider) PrivateKey(_ context.Context) (string, error) {
	if p.Path == "" {
		return "", fmt.Errorf("key file path cannot be empty")
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file %s: %w", p.Path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("key file %s is empty", p.Path)
	}
	return key, nil
}

func (p *FileKeyProvider) Name() string {
	return "file:" + p.Path
}

// StaticKeyProvider returns a fixed key. Meant for tests and the emulator.
type StaticKeyProvider struct {
	key string
}

func NewStaticKeyProvider(key string) *StaticKeyProvider {
	return &StaticKeyProvider{key: strings.TrimSpace(key)}
}

func (p *StaticKeyProvider) PrivateKey(_ context.Context) (string, error) {
	if p.key == "" {
		return "", fmt.Errorf("static private key is empty")
	}
	return p.key, nil
}

func (p *StaticKeyProvider) Name() string {
	return "static"
}
