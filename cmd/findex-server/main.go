package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/edirooss/findex-server/internal/authn"
	"github.com/edirooss/findex-server/internal/backend"
	"github.com/edirooss/findex-server/internal/config"
	"github.com/edirooss/findex-server/internal/dataset"
	"github.com/edirooss/findex-server/internal/httpapi"
	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/permission"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/pkcs12"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("main")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	memStore, permStore, datasetStore, closeStores, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("store setup failed", zap.Error(err))
	}
	defer closeStores()

	authCfg, err := buildAuthConfig(cfg)
	if err != nil {
		log.Fatal("auth setup failed", zap.Error(err))
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		log.Fatal("tls setup failed", zap.Error(err))
	}

	r := httpapi.NewRouter(httpapi.Deps{
		Log:         log,
		Version:     serverVersion,
		Memory:      memStore,
		Permissions: permStore,
		Datasets:    datasetStore,
		WordLength:  cfg.WordLength,
		Auth:        authCfg,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	httpServer := &http.Server{
		Addr:      addr,
		Handler:   r,
		TLSConfig: tlsCfg,

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,

		MaxHeaderBytes: 1 << 15,

		ErrorLog: zap.NewStdLog(log.Named("http").WithOptions(zap.AddCallerSkip(1))),
	}

	if tlsCfg != nil {
		log.Info("running HTTPS server", zap.String("addr", addr), zap.Bool("client_cert_auth", tlsCfg.ClientAuth == tls.RequireAndVerifyClientCert))
		if err := httpServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
		return
	}

	log.Info("running HTTP server", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

// serverVersion is reported verbatim by GET /version.
const serverVersion = "0.1.0"

// openStores selects the Redis or SQLite variant of the Backend Memory,
// Permissions Store and dataset Store per cfg.DatabaseKind, following the
// teacher's pattern of a single env-selected backing store rather than
// mixing kinds within one deployment.
func openStores(cfg *config.Config, log *zap.Logger) (memory.IndexedADT, permission.Store, dataset.Store, func(), error) {
	switch cfg.DatabaseKind {
	case config.DatabaseSQLite:
		mem, err := backend.OpenSQLiteMemory(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open sqlite memory: %w", err)
		}
		perms, err := permission.OpenSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			mem.Close()
			return nil, nil, nil, nil, fmt.Errorf("open sqlite permission store: %w", err)
		}
		entries, err := dataset.OpenSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			mem.Close()
			perms.Close()
			return nil, nil, nil, nil, fmt.Errorf("open sqlite dataset store: %w", err)
		}
		return mem, perms, entries, func() {
			entries.Close()
			perms.Close()
			mem.Close()
		}, nil

	case config.DatabaseRedis:
		opts, err := redis.ParseURL(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)

		mem := backend.NewRedisMemory(client)
		perms := permission.NewRedisStore(client, log)
		entries := dataset.NewRedisStore(client, log)
		return mem, perms, entries, func() { client.Close() }, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unsupported database kind %q", cfg.DatabaseKind)
	}
}

// buildAuthConfig wires a JWTValidator when JWT issuers are configured,
// leaving it nil (disabling bearer auth entirely) otherwise. mTLS client
// certificates are verified upstream by the TLS handshake (buildTLSConfig
// sets ClientCAs/ClientAuth on the server's tls.Config) — authn only reads
// the already-verified PeerCertificates off the request.
func buildAuthConfig(cfg *config.Config) (authn.Config, error) {
	ac := authn.Config{
		DefaultUsername:      cfg.DefaultUsername,
		ForceDefaultUsername: cfg.ForceDefaultUsername,
	}
	if len(cfg.JWTIssuers) == 0 {
		return ac, nil
	}
	validator, err := authn.NewJWTValidator(cfg.JWTIssuers, cfg.JWKSURIs, cfg.JWTAudiences)
	if err != nil {
		return authn.Config{}, fmt.Errorf("build JWT validator: %w", err)
	}
	ac.JWT = validator
	return ac, nil
}

// buildTLSConfig starts the server in HTTPS mode when a PKCS#12 certificate
// and key file is configured, per spec.md §4.3's TLS client certificate
// scheme. Returns nil, nil when PKCS12Path is unset, leaving the server in
// plain HTTP mode. When cfg.ClientCACert is also set, client certificates
// signed by that authority are required and verified by the TLS handshake
// itself; authn.clientCertCommonName then only reads the verified CN.
func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if cfg.PKCS12Path == "" {
		return nil, nil
	}

	p12Data, err := os.ReadFile(cfg.PKCS12Path)
	if err != nil {
		return nil, fmt.Errorf("read pkcs12 file: %w", err)
	}
	key, leaf, caCerts, err := pkcs12.DecodeChain(p12Data, cfg.PKCS12Password)
	if err != nil {
		return nil, fmt.Errorf("decode pkcs12 file: %w", err)
	}

	cert := tls.Certificate{PrivateKey: key, Leaf: leaf, Certificate: [][]byte{leaf.Raw}}
	for _, ca := range caCerts {
		cert.Certificate = append(cert.Certificate, ca.Raw)
	}

	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}

	if cfg.ClientCACert != "" {
		caPEM, err := os.ReadFile(cfg.ClientCACert)
		if err != nil {
			return nil, fmt.Errorf("read client ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.ClientCACert)
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsCfg, nil
}
