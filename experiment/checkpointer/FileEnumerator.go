package checkpointer

import "fmt"

// FilenameEnumerator returns a function which returns filenames with an
// iteration suffix, for example checkpoint-10.bin. The filename
// parameter is the full filename with its path, while the extension
// parameter determines the file extension.
func FilenameEnumerator(filename, extension string) func(int) string {
	return func(i int) string {
		return fmt.Sprintf("%v-%d%v", filename, i, extension)
	}
}

// Fixed returns a function which always returns filename, so that each
// checkpoint overwrites the previous one
func Fixed(filename string) func(int) string {
	return func(int) string {
		return filename
	}
}
