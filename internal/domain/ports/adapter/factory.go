package adapter

// GeneratorFactory resolves a model key from the registry into a ready
// TextGenerator. Construction fails for unknown keys or missing credentials;
// those are configuration errors and are never retried.
type GeneratorFactory interface {
	ForModel(modelKey string, notify NotifyFunc) (TextGenerator, error)
}
