package awsx

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// dbSecret accepts both the RDS-managed secret layout and the short aliases.
type dbSecret struct {
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	Username string      `json:"username"`
	User     string      `json:"user"`
	Password string      `json:"password"`
	DBName   string      `json:"dbname"`
	Database string      `json:"database"`
}

// DatabaseURLFromSSM reads a SecureString parameter holding database
// credentials as JSON and turns it into a postgres connection URL.
func DatabaseURLFromSSM(ctx context.Context, client ParameterGetter, name string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	dsn, err := BuildDatabaseURL([]byte(*out.Parameter.Value))
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	return dsn, nil
}

func BuildDatabaseURL(raw []byte) (string, error) {
	var sec dbSecret
	if err := json.Unmarshal(raw, &sec); err != nil {
		return "", fmt.Errorf("decode database secret: %w", err)
	}

	user := sec.Username
	if user == "" {
		user = sec.User
	}
	dbname := sec.DBName
	if dbname == "" {
		dbname = sec.Database
	}
	port := sec.Port.String()
	if port == "" {
		port = "5432"
	}
	if sec.Host == "" || user == "" || sec.Password == "" || dbname == "" {
		return "", fmt.Errorf("database secret is missing host, username, password or dbname")
	}

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, sec.Password),
		Host:   net.JoinHostPort(sec.Host, port),
		Path:   "/" + dbname,
	}
	return u.String(), nil
}
