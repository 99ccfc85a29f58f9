package config

func GetListenAddr() string {
	return GetEnvOrDefault("LISTEN_ADDR", ":8080")
}

// GetMaxSubmissionLength bounds the size of a single user submission in bytes
func GetMaxSubmissionLength() int {
	return parseEnvInt("MAX_SUBMISSION_LENGTH", 32000)
}
