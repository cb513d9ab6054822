package query

import (
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/datachat/internal/domain"
)

// Classify maps an untagged result onto a response by its shape: a dataset
// is a table, a string naming an existing regular file is an image, and
// anything else is text.
func Classify(v any) domain.Response {
	switch t := v.(type) {
	case *domain.Dataset:
		return domain.TableResponse(t)
	case string:
		if path := strings.TrimSpace(t); isRegularFile(path) {
			return domain.ImageResponse(path)
		}
		return domain.TextResponse(t)
	case nil:
		return domain.TextResponse("")
	default:
		return domain.TextResponse(fmt.Sprint(t))
	}
}

func isRegularFile(path string) bool {
	if path == "" || strings.ContainsRune(path, '\n') {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
