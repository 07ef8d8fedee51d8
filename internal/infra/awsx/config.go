// Package awsx builds the AWS SDK clients the worker talks to. A non-empty
// endpoint points every client at an emulator such as LocalStack.
package awsx

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type Clients struct {
	Config   aws.Config
	endpoint string
}

func Load(ctx context.Context, region, endpoint string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Clients{Config: cfg, endpoint: endpoint}, nil
}

func (c *Clients) S3() *s3.Client {
	return s3.NewFromConfig(c.Config, func(o *s3.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
			o.UsePathStyle = true
		}
	})
}

func (c *Clients) SQS() *sqs.Client {
	return sqs.NewFromConfig(c.Config, func(o *sqs.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
	})
}

func (c *Clients) SNS() *sns.Client {
	return sns.NewFromConfig(c.Config, func(o *sns.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
	})
}

func (c *Clients) SSM() *ssm.Client {
	return ssm.NewFromConfig(c.Config, func(o *ssm.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
	})
}
