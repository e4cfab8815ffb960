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

// ParameterGetter is the part of the SSM client used to read parameters
type ParameterGetter interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// LoadSSM reads every parameter under parameterPath and merges it into config. The key of each
// parameter is the last path segment, upper-cased with dashes turned into underscores, so
// /digital-mix/prod/session-secret becomes SESSION_SECRET. Values already set in config win.
func LoadSSM(ctx context.Context, config map[string]string, parameterPath string) (map[string]string, error) {
	if parameterPath == "" {
		return config, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(GetString(config, "AWS_REGION", "us-east-1")),
	)
	if err != nil {
		return config, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return LoadSSMWithClient(ctx, ssm.NewFromConfig(awsCfg), config, parameterPath)
}

func LoadSSMWithClient(ctx context.Context, client ParameterGetter, config map[string]string, parameterPath string) (map[string]string, error) {
	overlay := make(map[string]string)

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return config, fmt.Errorf("failed to read parameters under %s: %w", parameterPath, err)
		}
		for _, param := range page.Parameters {
			if param.Name == nil || param.Value == nil {
				continue
			}
			overlay[parameterKey(*param.Name)] = *param.Value
		}
	}

	log.Info().Str("path", parameterPath).Int("count", len(overlay)).Msg("loaded parameters from SSM")
	return Merge(config, overlay), nil
}

func parameterKey(name string) string {
	key := path.Base(name)
	key = strings.ReplaceAll(key, "-", "_")
	return strings.ToUpper(key)
}
