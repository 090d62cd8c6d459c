// Package bundle models the widget's build targets and serves a built
// bundle to the browser the checks drive.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Env is the build environment, read from NODE_ENV.
type Env string

const (
	Development Env = "development"
	Production  Env = "production"
)

// EnvFromString maps a NODE_ENV value to an Env. Anything that is not
// "production" builds for development, as the bundler does.
func EnvFromString(s string) Env {
	if strings.EqualFold(strings.TrimSpace(s), string(Production)) {
		return Production
	}
	return Development
}

// EnvFromEnviron reads NODE_ENV.
func EnvFromEnviron() Env { return EnvFromString(os.Getenv("NODE_ENV")) }

// Library is the global name the UMD bundle exports.
const Library = "Onfido"

// Target is one output of the build.
type Target struct {
	Name          string
	Library       string
	LibraryTarget string
	Dir           string
	Filename      string
	PublicPath    string

	Minify        bool
	Devtool       string
	CSSSourceMaps bool

	// ExtractCSS writes style.css next to the bundle; otherwise styles are
	// injected at runtime.
	ExtractCSS bool
	// HTMLPage emits index.html from the entry template.
	HTMLPage bool
	// AssetNames is the file-name pattern for fonts and images. Empty
	// means assets are inlined as data URLs.
	AssetNames string

	Defines map[string]string
}

// Path returns the bundle file under root.
func (t Target) Path(root string) string {
	return filepath.Join(root, t.Dir, t.Filename)
}

// Targets returns the browser bundle and the embeddable library for env.
func Targets(env Env) []Target {
	prod := env == Production

	devtool := "cheap-module-eval-source-map"
	assets := ""
	if prod {
		devtool = "source-map"
		assets = "[path][name]_[hash:base64:5].[ext]"
	}
	defines := map[string]string{"process.env.NODE_ENV": fmt.Sprintf("%q", string(env))}

	browser := Target{
		Name:          "browser",
		Library:       Library,
		LibraryTarget: "umd",
		Dir:           "dist",
		Filename:      "onfido.min.js",
		PublicPath:    "/",
		Minify:        prod,
		Devtool:       devtool,
		CSSSourceMaps: !prod,
		ExtractCSS:    prod,
		HTMLPage:      true,
		AssetNames:    assets,
		Defines:       defines,
	}

	library := browser
	library.Name = "node-library"
	library.Dir = "lib"
	library.Filename = "index.js"
	library.ExtractCSS = false
	library.HTMLPage = false
	library.AssetNames = ""
	library.Defines = map[string]string{"process.env.NODE_ENV": defines["process.env.NODE_ENV"]}

	return []Target{browser, library}
}
