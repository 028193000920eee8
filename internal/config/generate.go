package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// GenerateConfig holds configuration for the generate command.
type GenerateConfig struct {
	ABI      string
	Out      string
	Package  string
	TypeName string
	LogLevel string
}

// LoadGenerate merges config file, environment variables, and flags into GenerateConfig.
func LoadGenerate(cfgFile string, flags *pflag.FlagSet) (GenerateConfig, error) {
	v := newViper()
	v.SetDefault("abi", "./abi/usdc_weth.abi")
	v.SetDefault("out", "./internal/bindings/usdc_weth_pool.go")
	v.SetDefault("pkg", "bindings")
	v.SetDefault("type", "UsdcWethPool")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return GenerateConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfig(v, cfgFile); err != nil {
		return GenerateConfig{}, err
	}

	cfg := GenerateConfig{
		ABI:      v.GetString("abi"),
		Out:      v.GetString("out"),
		Package:  v.GetString("pkg"),
		TypeName: v.GetString("type"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.ABI == "" || cfg.Out == "" || cfg.Package == "" || cfg.TypeName == "" {
		return GenerateConfig{}, fmt.Errorf("abi, out, pkg and type are required")
	}
	return cfg, nil
}
