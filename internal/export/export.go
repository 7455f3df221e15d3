package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
)

// Stdout is the target name that writes to standard output.
const Stdout = "-"

const defaultRegion = "us-west-2"

var stdout io.Writer = os.Stdout

// Write stores buf at target which is either "-" for stdout, an s3://bucket/key url or a
// local filename.
func Write(ctx context.Context, target string, buf []byte, contentType string) error {
	switch {
	case target == "" || target == Stdout:
		_, err := stdout.Write(buf)
		return err
	case strings.HasPrefix(target, "s3://"):
		return writeS3(ctx, target, buf, contentType)
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := os.WriteFile(target, buf, 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", target, err)
	}
	return nil
}

type s3Target struct {
	endpoint string
	bucket   string
	key      string
	region   string
	keyID    string
	secret   string
}

// parseS3Target splits an s3 url into its bucket and key. A host with a port (such as
// localstack) is used as the endpoint and the bucket moves into the path. User info in the
// url overrides the default credential chain.
func parseS3Target(u *url.URL) (*s3Target, error) {
	target := &s3Target{region: os.Getenv("AWS_REGION")}
	if u.User != nil {
		target.keyID = u.User.Username()
		target.secret, _ = u.User.Password()
	}
	if r := u.Query().Get("region"); r != "" {
		target.region = r
	} else if target.region == "" {
		target.region = defaultRegion
	}
	path := strings.TrimPrefix(u.Path, "/")
	if u.Port() != "" || strings.Contains(u.Host, "localhost") {
		target.endpoint = "http://" + u.Host
		tok := strings.SplitN(path, "/", 2)
		target.bucket = tok[0]
		if len(tok) > 1 {
			target.key = tok[1]
		}
	} else {
		target.bucket = u.Host
		target.key = path
	}
	if target.bucket == "" {
		return nil, fmt.Errorf("missing bucket in %s", u.String())
	}
	if target.key == "" || strings.HasSuffix(target.key, "/") {
		return nil, fmt.Errorf("missing object key in %s", u.String())
	}
	return target, nil
}

func writeS3(ctx context.Context, urlString string, buf []byte, contentType string) error {
	u, err := url.Parse(urlString)
	if err != nil {
		return fmt.Errorf("unable to parse url: %w", err)
	}
	target, err := parseS3Target(u)
	if err != nil {
		return err
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(target.region)}
	if target.keyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(target.keyID, target.secret, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("unable to load AWS config: %w", err)
	}
	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true
		if target.endpoint != "" {
			o.BaseEndpoint = aws.String(target.endpoint)
		}
	})
	_, err = client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(target.bucket),
		Key:           aws.String(target.key),
		ContentType:   aws.String(contentType),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
	})
	if err != nil {
		return fmt.Errorf("error storing s3 object to %s:%s: %w", target.bucket, target.key, err)
	}
	return nil
}
