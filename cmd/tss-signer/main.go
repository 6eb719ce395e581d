package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/api/signer"
	"github.com/taurusgroup/tss-factors/pkg/account"
	"github.com/taurusgroup/tss-factors/pkg/localnet"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/metadata"
	"github.com/taurusgroup/tss-factors/protocols/factors"
	"github.com/taurusgroup/tss-factors/protocols/sign"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tss-signer",
		Usage: "Third party signing server for threshold ECDSA accounts",
		Flags: logFlags,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the signing API over an in-process custodial network",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "listen-addr",
						Value: signer.DefaultConfig().ListenAddr,
						Usage: "address to listen on for the API",
					},
					&cli.StringFlag{
						Name:    "factor-key",
						EnvVars: []string{"TSS_FACTOR_KEY"},
						Usage:   "hex encoded factor key; a random key is generated if empty",
					},
				}, append(networkFlags, workerFlags...)...),
				Action: serve,
			},
			{
				Name:   "demo",
				Usage:  "create an account, add this server as a third party signer and sign a message",
				Flags:  append(append(append([]cli.Flag{&cli.StringFlag{Name: "message", Value: "hello", Usage: "message to sign"}}, networkFlags...), metadataFlags...), workerFlags...),
				Action: demo,
			},
			{
				Name:  "factor-pub",
				Usage: "print the factor public key of a factor key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "factor-key",
						EnvVars:  []string{"TSS_FACTOR_KEY"},
						Required: true,
						Usage:    "hex encoded factor key",
					},
				},
				Action: factorPub,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func factorKey(hexKey string) (curve.Scalar, error) {
	if hexKey == "" {
		return sample.Scalar(rand.Reader, curve.Secp256k1{}), nil
	}
	key, err := curve.ScalarFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	if key.IsZero() {
		return nil, errors.New("factor key is zero")
	}
	return key, nil
}

func newSigner(cCtx *cli.Context, log zerolog.Logger) (*localnet.Network, *sign.Signer, error) {
	network, err := localnet.New(cCtx.Int("servers"), rand.Reader, log.With().Str("component", "localnet").Logger())
	if err != nil {
		return nil, nil, err
	}
	config := sign.DefaultConfig()
	config.Servers = network.Servers()
	local, err := sign.NewSigner(network, config, log.With().Str("component", "sign").Logger())
	if err != nil {
		return nil, nil, err
	}
	return network, local, nil
}

func serve(cCtx *cli.Context) error {
	log := setupLogger(cCtx)
	key, err := factorKey(cCtx.String("factor-key"))
	if err != nil {
		return err
	}
	_, local, err := newSigner(cCtx, log)
	if err != nil {
		return err
	}
	handler, err := signer.NewHandler(key, local, log)
	if err != nil {
		return err
	}
	cfg := signer.DefaultConfig()
	cfg.ListenAddr = cCtx.String("listen-addr")
	cfg.Workers = cCtx.Int("workers")
	srv, err := signer.New(cfg, handler, log)
	if err != nil {
		return err
	}
	log.Info().Str("factor_pub", curve.XHex(handler.FactorPub())).Msg("factor key loaded")

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	srv.RunInBackground()
	<-exit

	srv.Shutdown()
	return nil
}

func demo(cCtx *cli.Context) error {
	log := setupLogger(cCtx)
	ctx, cancel := context.WithTimeout(cCtx.Context, time.Minute)
	defer cancel()

	network, local, err := newSigner(cCtx, log)
	if err != nil {
		return err
	}
	backend, err := metadataBackend(cCtx, log)
	if err != nil {
		return err
	}
	mutator, err := factors.NewMutator(network, len(network.Servers()), log)
	if err != nil {
		return err
	}
	client := account.NewClient(metadata.NewStore(backend, log), mutator, log)

	serverKey, err := factorKey("")
	if err != nil {
		return err
	}
	handler, err := signer.NewHandler(serverKey, local, log)
	if err != nil {
		return err
	}
	cfg := signer.DefaultConfig()
	cfg.Workers = cCtx.Int("workers")
	srv, err := signer.New(cfg, handler, log)
	if err != nil {
		return err
	}
	defer srv.Shutdown()
	listener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Handler: srv.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = httpSrv.Serve(listener) }()
	defer httpSrv.Close()
	remote := signer.NewClient("http://" + listener.Addr().String())

	group := curve.Secp256k1{}
	actx, err := client.Create(ctx, network, "demo", sample.Scalar(rand.Reader, group), sample.Scalar(rand.Reader, group), []string{"demo"})
	if err != nil {
		return err
	}
	pub, err := client.AddThirdPartySigner(ctx, actx, remote)
	if err != nil {
		return err
	}
	sig, err := client.RemoteSign(ctx, actx, remote, pub, []byte(cCtx.String("message")), false)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(signer.SignResponse{R: sig.RHex(), S: sig.SHex(), V: int(sig.V)})
}

func factorPub(cCtx *cli.Context) error {
	key, err := factorKey(cCtx.String("factor-key"))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(signer.FactorPubResponse{FactorPub: curve.NewJSONPoint(key.ActOnBase())})
}
