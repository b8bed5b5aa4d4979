// Package language defines the closed set of languages devdock can build a
// development container for. Every per-language name (image, container,
// Dockerfile, template) is derived here and nowhere else.
package language

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedLanguage is returned when a name or file extension does not
// map to a known language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is one of the supported development container languages.
// The zero value is not a valid language.
type Language int

const (
	Python Language = iota + 1
	Node
	Go
	TypeScript
	Java
	Cpp
)

type definition struct {
	name       string
	extensions []string
	baseImage  string
	body       string
}

var definitions = map[Language]definition{
	Python: {
		name:       "python",
		extensions: []string{"py"},
		baseImage:  "python:3.10-slim",
		body: `WORKDIR /app
COPY . /app

# RUN pip install --no-cache-dir -r requirements.txt

CMD ["python", "/app/main.py"]`,
	},
	Node: {
		name:       "node",
		extensions: []string{"js"},
		baseImage:  "node:18",
		body: `WORKDIR /app
COPY . /app

RUN npm install

CMD ["node", "/app/main.js"]`,
	},
	Go: {
		name:       "go",
		extensions: []string{"go"},
		baseImage:  "golang:1.20",
		body: `WORKDIR /app
COPY . /app

RUN go build -o main .

CMD ["./main"]`,
	},
	TypeScript: {
		name:       "typescript",
		extensions: []string{"ts"},
		baseImage:  "node:18",
		body: `WORKDIR /app
COPY . /app

RUN npm install -g ts-node && npm install

CMD ["ts-node", "/app/main.ts"]`,
	},
	Java: {
		name:       "java",
		extensions: []string{"java"},
		baseImage:  "openjdk:17",
		body: `WORKDIR /app
COPY . /app
RUN javac Main.java

CMD ["java", "-cp", "/app", "Main"]`,
	},
	Cpp: {
		name:       "cpp",
		extensions: []string{"cpp"},
		baseImage:  "gcc:latest",
		body: `WORKDIR /app
COPY . /app

RUN g++ -o /app/main /app/main.cpp

CMD ["./main"]`,
	},
}

// All returns every supported language in declaration order.
func All() []Language {
	return []Language{Python, Node, Go, TypeScript, Java, Cpp}
}

// Valid reports whether l is one of the declared languages.
func (l Language) Valid() bool {
	_, ok := definitions[l]
	return ok
}

func (l Language) String() string {
	if d, ok := definitions[l]; ok {
		return d.name
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// ImageName is the tag devdock builds for this language.
func (l Language) ImageName() string {
	return l.String() + "-dev-image:latest"
}

// ContainerName is the fixed name of the development container.
func (l Language) ContainerName() string {
	return l.String() + "-dev-container"
}

// DockerfileName is the file name materialized next to the active file.
func (l Language) DockerfileName() string {
	return l.String() + ".Dockerfile"
}

// BaseImage is the FROM image used by the template.
func (l Language) BaseImage() string {
	return definitions[l].baseImage
}

// Extensions lists the file extensions (without dot) mapped to l.
func (l Language) Extensions() []string {
	return append([]string(nil), definitions[l].extensions...)
}

// Template renders the default Dockerfile for l.
func (l Language) Template() string {
	d, ok := definitions[l]
	if !ok {
		return ""
	}
	return "FROM " + d.baseImage + "\n\n" + d.body + "\n"
}

// Parse resolves a language by its canonical name.
func Parse(name string) (Language, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, l := range All() {
		if definitions[l].name == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, name)
}

// FromExtension resolves a language by file extension, with or without the
// leading dot.
func FromExtension(ext string) (Language, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return 0, fmt.Errorf("%w: file has no extension", ErrUnsupportedLanguage)
	}
	for _, l := range All() {
		for _, e := range definitions[l].extensions {
			if e == ext {
				return l, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unsupported file type .%s", ErrUnsupportedLanguage, ext)
}

// FromPath resolves a language from the extension of a file path.
func FromPath(path string) (Language, error) {
	return FromExtension(filepath.Ext(path))
}
