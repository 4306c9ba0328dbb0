package cache

// Cache - ограниченное хранилище результатов по нормализованному запросу.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Len() int
}
