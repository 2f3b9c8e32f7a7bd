package config

// TextractConfig configures the AWS Textract OCR engine.
type TextractConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	// Lines below this confidence (0-100) are dropped.
	MinConfidence float32 `yaml:"minConfidence"`
}

func (c *TextractConfig) fromEnv() {
	envString("AWS_REGION", &c.Region)
	envString("AWS_ENDPOINT", &c.Endpoint)
	envString("AWS_ACCESS_KEY", &c.AccessKey)
	envString("AWS_SECRET_KEY", &c.SecretKey)
}
