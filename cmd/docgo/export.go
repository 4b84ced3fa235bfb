package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/hupe1980/docgo"
	"github.com/hupe1980/docgo/export"
	ddbsink "github.com/hupe1980/docgo/export/dynamodb"
	miniosink "github.com/hupe1980/docgo/export/minio"
	s3sink "github.com/hupe1980/docgo/export/s3"
)

func (cli *CLI) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every document's stored form to a directory, S3, MinIO or DynamoDB",
		Long: `Export writes one object per document, named by the document id.

Targets:
  --to dir    --dir ./out
  --to s3     --bucket name [--prefix p/] [--region r] [--endpoint url]
  --to minio  --endpoint host:9000 --bucket name --access-key k --secret-key s [--secure]
  --to dynamodb --table name [--prefix collection] [--region r] [--endpoint url]

Flags may also be set as DOCGO_EXPORT_<FLAG> environment variables or in the
export section of docgo.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := cli.viperInst
			ctx := cmd.Context()

			sink, err := cli.exportSink(ctx)
			if err != nil {
				return err
			}

			extra := []docgo.Option{docgo.WithExportConcurrency(v.GetInt("export.concurrency"))}
			if limit := v.GetInt("export.rate-limit"); limit > 0 {
				extra = append(extra, docgo.WithExportRateLimit(limit))
			}
			if limit := v.GetInt64("export.memory-limit"); limit > 0 {
				extra = append(extra, docgo.WithExportMemoryLimit(limit))
			}

			return cli.withStore(ctx, func(s *docgo.Store) error {
				n, err := s.ExportTo(ctx, sink)

				var partial *docgo.ExportPartialFailure
				if errors.As(err, &partial) {
					for _, id := range partial.FailedIDs {
						fmt.Fprintf(cli.errOut, "failed: %s\n", id)
					}
				}
				fmt.Fprintf(cli.out, "exported %d\n", n)
				return err
			}, extra...)
		},
	}

	flags := cmd.Flags()
	flags.String("to", "dir", "Export target (dir|s3|minio|dynamodb)")
	flags.String("dir", "", "Target directory for --to dir")
	flags.String("bucket", "", "Bucket for --to s3 and --to minio")
	flags.String("table", "", "Table for --to dynamodb")
	flags.String("prefix", "", "Object key prefix, or partition key for --to dynamodb")
	flags.String("region", "", "AWS region for --to s3 and --to dynamodb")
	flags.String("endpoint", "", "Custom endpoint (required for --to minio)")
	flags.String("access-key", "", "MinIO access key")
	flags.String("secret-key", "", "MinIO secret key")
	flags.Bool("secure", false, "Use TLS for MinIO")
	flags.Int("concurrency", docgo.DefaultExportConcurrency, "Parallel writes")
	flags.Int("rate-limit", 0, "Maximum bytes per second (0 = unlimited)")
	flags.Int64("memory-limit", 0, "Maximum payload bytes in flight (0 = unlimited)")

	for _, name := range []string{"to", "dir", "bucket", "table", "prefix", "region", "endpoint", "access-key", "secret-key", "secure", "concurrency", "rate-limit", "memory-limit"} {
		_ = cli.viperInst.BindPFlag("export."+name, flags.Lookup(name))
	}
	return cmd
}

// exportSink builds the sink selected by --to.
func (cli *CLI) exportSink(ctx context.Context) (export.Sink, error) {
	v := cli.viperInst

	switch target := v.GetString("export.to"); target {
	case "dir":
		dir := v.GetString("export.dir")
		if dir == "" {
			return nil, fmt.Errorf("--dir is required for --to dir")
		}
		d := export.NewDir(dir)
		if err := d.Check(); err != nil {
			return nil, err
		}
		return d, nil

	case "s3":
		bucket := v.GetString("export.bucket")
		if bucket == "" {
			return nil, fmt.Errorf("--bucket is required for --to s3")
		}
		cfg, err := cli.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		endpoint := v.GetString("export.endpoint")
		client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			}
		})
		return s3sink.NewSink(client, bucket, v.GetString("export.prefix")), nil

	case "minio":
		endpoint, bucket := v.GetString("export.endpoint"), v.GetString("export.bucket")
		if endpoint == "" || bucket == "" {
			return nil, fmt.Errorf("--endpoint and --bucket are required for --to minio")
		}
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(v.GetString("export.access-key"), v.GetString("export.secret-key"), ""),
			Secure: v.GetBool("export.secure"),
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniosink.NewSink(client, bucket, v.GetString("export.prefix")), nil

	case "dynamodb":
		table := v.GetString("export.table")
		if table == "" {
			return nil, fmt.Errorf("--table is required for --to dynamodb")
		}
		cfg, err := cli.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		endpoint := v.GetString("export.endpoint")
		client := awsddb.NewFromConfig(cfg, func(o *awsddb.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		return ddbsink.NewSink(client, table, v.GetString("export.prefix")), nil

	default:
		return nil, fmt.Errorf("unknown export target %q (want dir|s3|minio|dynamodb)", target)
	}
}

func (cli *CLI) awsConfig(ctx context.Context) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region := cli.viperInst.GetString("export.region"); region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
