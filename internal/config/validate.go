package config

func ValidateForRun(cfg *Config) error {
	if err := cfg.Redis.Validate(); err != nil {
		return err
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}
