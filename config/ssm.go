package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterLister is the slice of the SSM API used to pull configuration.
type ParameterLister interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// LoadSSM reads every parameter under SSM_PARAMETER_PATH and merges it into
// cfg. The last path element becomes the key, so /projectdal/prod/SUPABASE_URL
// is exposed as SUPABASE_URL. Values already set in the environment win.
func LoadSSM(ctx context.Context, cfg map[string]string) error {
	prefix := GetString(cfg, "SSM_PARAMETER_PATH", "")
	if prefix == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(GetString(cfg, "AWS_REGION", "us-east-1")))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	params, err := FetchParameters(ctx, ssm.NewFromConfig(awsCfg), prefix)
	if err != nil {
		return err
	}

	Merge(cfg, params, false)
	log.Info().Str("path", prefix).Int("count", len(params)).Msg("Loaded parameters from SSM")
	return nil
}

// FetchParameters pages through GetParametersByPath and returns decrypted values.
func FetchParameters(ctx context.Context, client ParameterLister, prefix string) (map[string]string, error) {
	out := make(map[string]string)
	var next *string
	for {
		page, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      next,
		})
		if err != nil {
			return nil, fmt.Errorf("get parameters by path %s: %w", prefix, err)
		}

		for _, p := range page.Parameters {
			name := aws.ToString(p.Name)
			key := strings.ToUpper(path.Base(name))
			out[key] = aws.ToString(p.Value)
		}

		if page.NextToken == nil || aws.ToString(page.NextToken) == "" {
			break
		}
		next = page.NextToken
	}
	return out, nil
}
