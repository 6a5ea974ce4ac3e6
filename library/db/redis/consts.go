package redis

const (
	keyPrefix = "institute-cms/"

	// KeyPrefixContent namespaces cached content documents.
	KeyPrefixContent = keyPrefix + "content/"
)
