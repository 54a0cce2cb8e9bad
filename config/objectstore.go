package config

import (
	"errors"
	"os"

	"github.com/sentinela-app/sentinela/internal/storage"
)

var ObjectStore *storage.S3Client

func InitObjectStore() error {
	endpoint := os.Getenv("OBJECT_STORE_ENDPOINT")
	bucket := os.Getenv("OBJECT_STORE_BUCKET")
	if endpoint == "" || bucket == "" {
		return errors.New("OBJECT_STORE_ENDPOINT and OBJECT_STORE_BUCKET environment variables are not set")
	}

	region := os.Getenv("OBJECT_STORE_REGION")
	if region == "" {
		region = "us-east-1"
	}

	client, err := storage.NewS3Client(storage.S3Config{
		Endpoint:  endpoint,
		Bucket:    bucket,
		AccessKey: os.Getenv("OBJECT_STORE_ACCESS_KEY"),
		SecretKey: os.Getenv("OBJECT_STORE_SECRET_KEY"),
		Region:    region,
	})
	if err != nil {
		return err
	}

	ObjectStore = client
	return nil
}
