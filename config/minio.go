package config

type MinioConfig struct {
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	Endpoint   string `yaml:"endpoint"`
	UseSSL     bool   `yaml:"useSSL"`
	Region     string `yaml:"region"`
	BucketName string `yaml:"bucketName"`
}

func (c *MinioConfig) fromEnv() {
	envString("MINIO_ACCESS_KEY", &c.AccessKey)
	envString("MINIO_SECRET_KEY", &c.SecretKey)
	envString("MINIO_ENDPOINT", &c.Endpoint)
	envBool("MINIO_USE_SSL", &c.UseSSL)
	envString("MINIO_REGION", &c.Region)
	envString("MINIO_BUCKET_NAME", &c.BucketName)
}
