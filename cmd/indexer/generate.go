package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ethLogs/internal/bindgen"
	"ethLogs/internal/config"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go bindings for the pool ABI",
		RunE:  runGenerate,
	}

	cmd.Flags().String("abi", "./abi/usdc_weth.abi", "ABI JSON file")
	cmd.Flags().String("out", "./internal/bindings/usdc_weth_pool.go", "output Go file")
	cmd.Flags().String("pkg", "bindings", "Go package name")
	cmd.Flags().String("type", "UsdcWethPool", "Go type name")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadGenerate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, err := bindgen.Generate(bindgen.Options{
		ABIPath:  cfg.ABI,
		OutPath:  cfg.Out,
		Package:  cfg.Package,
		TypeName: cfg.TypeName,
	})
	if err != nil {
		return err
	}

	logger.Info("bindings generated", zap.String("abi", cfg.ABI), zap.String("out", out), zap.String("type", cfg.TypeName))
	return nil
}
