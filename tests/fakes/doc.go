// Package fakes provides test doubles for the AWS Secrets Manager client.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeSecretsManagerClient()
//	fake.AddSecretString("prod/db", `{"username":"app","password":"s3cret"}`)
//	p, _ := providers.NewAWSSecretsManagerProvider(ctx, "aws", providers.AWSOptions{},
//	    providers.WithSecretsManagerClient(fake))
package fakes
