package bindgen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Options describes one contract binding to generate.
type Options struct {
	ABIPath  string
	OutPath  string
	Package  string
	TypeName string
}

// Generate writes Go bindings for the ABI at opts.ABIPath and returns the output path.
func Generate(opts Options) (string, error) {
	if opts.ABIPath == "" || opts.OutPath == "" || opts.Package == "" || opts.TypeName == "" {
		return "", fmt.Errorf("abi path, out path, package and type name are required")
	}

	abiJSON, err := os.ReadFile(opts.ABIPath)
	if err != nil {
		return "", fmt.Errorf("read abi: %w", err)
	}

	code, err := bind.Bind(
		[]string{opts.TypeName},
		[]string{string(abiJSON)},
		[]string{""},
		nil,
		opts.Package,
		bind.LangGo,
		nil,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("bind %s: %w", opts.TypeName, err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(opts.OutPath, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write bindings: %w", err)
	}
	return opts.OutPath, nil
}
