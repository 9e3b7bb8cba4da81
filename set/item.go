package set

// Item is anything storable in a Set.
type Item interface {
	Key() string
	Value() interface{}
}

type item struct {
	key   string
	value interface{}
}

func (i *item) Key() string {
	return i.key
}

func (i *item) Value() interface{} {
	return i.value
}

// Itemize pairs a key with an arbitrary value.
func Itemize(key string, value interface{}) Item {
	return &item{key, value}
}
