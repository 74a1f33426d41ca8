package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/crawler-api/internal/platform/logger"
)

var errNotConfigured = errors.New("temporal address is not configured")

// Dial opens the frontend connection for cfg.Namespace. Unreachable frontends are
// retried with capped exponential backoff until cfg.DialMaxWait runs out.
func Dial(ctx context.Context, cfg Config, log *logger.Logger) (temporalsdkclient.Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, errNotConfigured
	}
	if ctx == nil {
		ctx = context.Background()
	}
	opts, err := clientOptions(cfg, cfg.Namespace, log)
	if err != nil {
		return nil, err
	}

	// A negative wait would retry forever; a dial is always bounded.
	maxWait := cfg.DialMaxWait
	if maxWait < 0 {
		maxWait = 0
	}

	var c temporalsdkclient.Client
	attempts, err := withBackoff(ctx, cfg, maxWait, func(attempt int) (bool, error) {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout(cfg))
		defer cancel()
		conn, err := temporalsdkclient.DialContext(dialCtx, opts)
		if err != nil {
			if log != nil {
				log.Warn("Temporal dial attempt failed", "address", cfg.Address, "attempt", attempt, "error", err)
			}
			return true, err
		}
		c = conn
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s/%s: %w", cfg.Address, cfg.Namespace, err)
	}
	if log != nil {
		log.Info("Temporal connected", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempts)
	}

	if cfg.AutoRegisterNS {
		if err := EnsureNamespace(ctx, cfg, log); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace on self-hosted clusters where it is
// missing. Cloud namespaces are provisioned elsewhere and only described here.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// No namespace header: the namespace service must be reachable before the namespace exists.
	opts, err := clientOptions(cfg, "", log)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer nsClient.Close()

	_, err = withBackoff(ctx, cfg, -1, func(attempt int) (bool, error) {
		err := describeOrRegister(ctx, nsClient, namespace, cfg.NSRetentionDays, log)
		if err != nil && isRetryableRPC(err) {
			if log != nil {
				log.Warn("Temporal namespace not ready", "namespace", namespace, "attempt", attempt, "error", err)
			}
			return true, err
		}
		return false, err
	})
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", namespace, err)
	}
	return nil
}

func describeOrRegister(ctx context.Context, nsClient temporalsdkclient.NamespaceClient, namespace string, retentionDays int, log *logger.Logger) error {
	_, err := nsClient.Describe(ctx, namespace)
	var missing *serviceerror.NamespaceNotFound
	if !errors.As(err, &missing) {
		return err
	}
	if retentionDays < 1 || retentionDays > 365 {
		retentionDays = 7
	}
	err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        namespace,
		Description:                      "registered by crawler-api",
		WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retentionDays) * 24 * time.Hour),
	})
	var exists *serviceerror.NamespaceAlreadyExists
	if err == nil || errors.As(err, &exists) {
		if log != nil {
			log.Info("Temporal namespace ready", "namespace", namespace, "retention_days", retentionDays)
		}
		return nil
	}
	return err
}

// withBackoff runs op until it succeeds or reports a non-retryable error. A
// positive maxWait bounds the retries, zero allows a single attempt and a
// negative value retries until ctx ends. It returns the attempts made.
func withBackoff(ctx context.Context, cfg Config, maxWait time.Duration, op func(attempt int) (retry bool, err error)) (int, error) {
	deadline := time.Now().Add(maxWait)
	for attempt := 1; ; attempt++ {
		retry, err := op(attempt)
		if err == nil {
			return attempt, nil
		}
		if !retry || maxWait == 0 || ctx.Err() != nil {
			return attempt, err
		}
		if maxWait > 0 && time.Now().After(deadline) {
			return attempt, err
		}
		timer := time.NewTimer(clampBackoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

func clientOptions(cfg Config, namespace string, log *logger.Logger) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: namespace,
	}
	if log != nil {
		opts.Logger = log
	}
	if cfg.tlsEnabled() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

func dialTimeout(cfg Config) time.Duration {
	if cfg.DialTimeout <= 0 {
		return 5 * time.Second
	}
	return cfg.DialTimeout
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal mtls needs TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH")
	}
	pair, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal mtls key pair: %w", err)
	}
	out := &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return out, nil
	}
	caPEM, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal mtls ca: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("temporal mtls ca %s: no certificates found", cfg.ClientCAPath)
	}
	out.RootCAs = roots
	return out, nil
}

func clampBackoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// isRetryableRPC reports whether err looks like a transient frontend condition.
func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}
