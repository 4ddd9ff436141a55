//go:build !unix

package monotime

func Now() int64 {
	return fallback()
}
