package es

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/school_backend/pkg/config"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

// NewClient connects to Elasticsearch and checks the cluster answers.
func NewClient(ctx context.Context, cfg config.Config) (*elasticsearch.Client, error) {
	log := logging.FromContext(ctx)
	log.Info("connecting to elasticsearch", slog.String("url", cfg.ESURL))

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ESURL},
		Username:  cfg.ESUser,
		Password:  cfg.ESPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("es: new client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es: info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Error("elasticsearch error response", slog.String("status", res.Status()), slog.String("body", string(body)))
		return nil, fmt.Errorf("es: info: %s", res.Status())
	}

	log.Info("connected to elasticsearch")
	return client, nil
}
