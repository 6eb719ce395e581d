package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/internal/logging"
	"github.com/taurusgroup/tss-factors/pkg/metadata"
	"github.com/urfave/cli/v2"
)

const version = "dev"

var logFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "tss-signer",
		Usage: "add 'service' tag to logs",
	},
}

var workerFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "workers",
		Value: 0,
		Usage: "goroutines checking hierarchical share combinations; 0 checks them on the request goroutine",
	},
}

var networkFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "servers",
		Value: 3,
		Usage: "number of in-process custodial servers",
	},
}

var metadataFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "metadata-backend",
		Value: "memory",
		Usage: "metadata backend: 'memory', 's3' or 'vault'",
	},
	&cli.StringFlag{Name: "s3-bucket", Usage: "S3 bucket for metadata"},
	&cli.StringFlag{Name: "s3-prefix", Usage: "S3 key prefix for metadata"},
	&cli.StringFlag{Name: "s3-region", Value: "us-east-1", Usage: "S3 region"},
	&cli.StringFlag{Name: "s3-endpoint", Usage: "S3 compatible endpoint"},
	&cli.StringFlag{Name: "s3-access-key", EnvVars: []string{"AWS_ACCESS_KEY_ID"}, Usage: "S3 access key"},
	&cli.StringFlag{Name: "s3-secret-key", EnvVars: []string{"AWS_SECRET_ACCESS_KEY"}, Usage: "S3 secret key"},
	&cli.StringFlag{Name: "vault-addr", EnvVars: []string{"VAULT_ADDR"}, Usage: "Vault address"},
	&cli.StringFlag{Name: "vault-token", EnvVars: []string{"VAULT_TOKEN"}, Usage: "Vault token"},
	&cli.StringFlag{Name: "vault-mount", Value: "secret", Usage: "Vault KV v2 mount path"},
	&cli.StringFlag{Name: "vault-path", Value: "tss", Usage: "path within the Vault mount"},
}

func setupLogger(cCtx *cli.Context) zerolog.Logger {
	return logging.New(logging.Options{
		Debug:   cCtx.Bool("log-debug"),
		JSON:    cCtx.Bool("log-json"),
		UID:     cCtx.Bool("log-uid"),
		Service: cCtx.String("log-service"),
		Version: version,
	})
}

func metadataBackend(cCtx *cli.Context, log zerolog.Logger) (metadata.Backend, error) {
	switch backend := cCtx.String("metadata-backend"); backend {
	case "memory":
		return metadata.NewMemoryBackend(), nil
	case "s3":
		return metadata.NewS3Backend(metadata.S3Config{
			Bucket:    cCtx.String("s3-bucket"),
			Prefix:    cCtx.String("s3-prefix"),
			Region:    cCtx.String("s3-region"),
			Endpoint:  cCtx.String("s3-endpoint"),
			AccessKey: cCtx.String("s3-access-key"),
			SecretKey: cCtx.String("s3-secret-key"),
		}, log)
	case "vault":
		return metadata.NewVaultBackend(metadata.VaultConfig{
			Address:   cCtx.String("vault-addr"),
			Token:     cCtx.String("vault-token"),
			MountPath: cCtx.String("vault-mount"),
			DataPath:  cCtx.String("vault-path"),
		}, log)
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", backend)
	}
}
