package config

// S3Config holds the AWS S3 bucket used for job inputs and results.
type S3Config struct {
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
}

func (c *S3Config) fromEnv() {
	envString("AWS_S3_BUCKET_NAME", &c.BucketName)
	envString("AWS_REGION", &c.Region)
	envString("AWS_ENDPOINT", &c.Endpoint)
	envString("AWS_ACCESS_KEY", &c.AccessKey)
	envString("AWS_SECRET_KEY", &c.SecretKey)
}
