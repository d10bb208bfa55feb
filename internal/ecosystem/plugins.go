package ecosystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// NewReactNative recognizes a package.json next to an iOS Podfile or an
// Android Gradle build.
func NewReactNative(deps Deps) Plugin {
	return &reactNative{NewBase(Descriptor{
		ID:      ReactNative,
		Name:    "React Native",
		Markers: []string{"package.json"},
		Patterns: []Pattern{
			{"node_modules", "NPM dependencies", true},
			{"ios/Pods", "iOS CocoaPods", true},
			{"ios/build", "iOS build output", true},
			{"ios/DerivedData", "iOS Xcode cache", true},
			{"android/build", "Android build output", true},
			{"android/.gradle", "Android Gradle cache", true},
			{"android/app/build", "Android app build", true},
			{".expo", "Expo cache", true},
			{".metro", "Metro bundler cache", true},
			{".cache", "General cache", true},
		},
	}, nil, deps)}
}

type reactNative struct{ *Base }

func (p *reactNative) Detect(path string) bool {
	if !exists(filepath.Join(path, "package.json")) {
		return false
	}
	return exists(filepath.Join(path, "ios", "Podfile")) ||
		exists(filepath.Join(path, "android", "build.gradle")) ||
		exists(filepath.Join(path, "android", "build.gradle.kts"))
}

// NewNodeJS recognizes any package.json.
func NewNodeJS(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      NodeJS,
		Name:    "Node.js",
		Markers: []string{"package.json"},
		Patterns: []Pattern{
			{"node_modules", "NPM dependencies", true},
			{".next", "Next.js build cache", true},
			{".nuxt", "Nuxt.js build cache", true},
			{".output", "Nuxt 3 output", true},
			{"dist", "Build output", true},
			{"build", "Build output", true},
			{".turbo", "Turborepo cache", true},
			{".parcel-cache", "Parcel cache", true},
			{".cache", "General cache", true},
			{"coverage", "Test coverage reports", true},
			{".nyc_output", "NYC coverage output", true},
			{".svelte-kit", "SvelteKit cache", true},
			{".astro", "Astro cache", true},
			{".vercel", "Vercel cache", true},
			{"storybook-static", "Storybook build", true},
		},
	}, []GlobalPath{
		{".npm/_cacache", "npm package cache"},
	}, deps)
}

// NewRust recognizes Cargo.toml.
func NewRust(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:       Rust,
		Name:     "Rust",
		Markers:  []string{"Cargo.toml"},
		Patterns: []Pattern{{"target", "Rust build artifacts", true}},
	}, []GlobalPath{
		{".cargo/registry/cache", "Cargo registry cache"},
	}, deps)
}

// NewXcode recognizes a Swift package or an Xcode project or workspace
// bundle.
func NewXcode(deps Deps) Plugin {
	return &xcode{NewBase(Descriptor{
		ID:      Xcode,
		Name:    "iOS / Xcode",
		Markers: []string{"Package.swift", "*.xcodeproj", "*.xcworkspace"},
		Patterns: []Pattern{
			{"Pods", "CocoaPods dependencies", true},
			{"DerivedData", "Xcode build cache", true},
			{"build", "Build output", true},
			{".build", "Swift PM build cache", true},
			{"xcuserdata", "Xcode user data", true},
			{"*.xcodeproj/xcuserdata", "Project user data", true},
			{"*.xcworkspace/xcuserdata", "Workspace user data", true},
		},
	}, []GlobalPath{
		{"Library/Developer/Xcode/DerivedData", "Global DerivedData"},
		{"Library/Developer/Xcode/Archives", "Archives"},
		{"Library/Developer/Xcode/iOS DeviceSupport", "iOS Device Support"},
		{"Library/Developer/CoreSimulator/Caches", "Simulator Caches"},
	}, deps)}
}

type xcode struct{ *Base }

func (p *xcode) Detect(path string) bool {
	if exists(filepath.Join(path, "Package.swift")) {
		return true
	}
	return hasEntry(path, []string{"*.xcodeproj", "*.xcworkspace"}, fs.DirEntry.IsDir)
}

// NewPython recognizes the common Python packaging manifests.
func NewPython(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Python,
		Name:    "Python",
		Markers: []string{"requirements.txt", "setup.py", "pyproject.toml", "Pipfile"},
		Patterns: []Pattern{
			{"__pycache__", "Python bytecode cache", true},
			{".venv", "Virtual environment", true},
			{"venv", "Virtual environment", true},
			{"env", "Virtual environment", false},
			{".pytest_cache", "Pytest cache", true},
			{".mypy_cache", "Mypy cache", true},
			{".ruff_cache", "Ruff cache", true},
			{"dist", "Build distribution", true},
			{"build", "Build output", true},
			{".tox", "Tox environments", true},
			{".nox", "Nox environments", true},
			{"htmlcov", "Coverage HTML report", true},
		},
	}, []GlobalPath{
		{".cache/pip", "pip download cache"},
	}, deps)
}

// NewDocker recognizes Dockerfiles and compose files. It has no
// cleanable patterns; it claims the directory so nothing inside is
// mistaken for a separate project.
func NewDocker(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Docker,
		Name:    "Docker",
		Markers: []string{"Dockerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"},
	}, nil, deps)
}

// NewGo recognizes go.mod.
func NewGo(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:       Go,
		Name:     "Go",
		Markers:  []string{"go.mod"},
		Patterns: []Pattern{{"vendor", "Vendored dependencies", false}},
	}, []GlobalPath{
		{"go/pkg/mod/cache", "Module cache"},
	}, deps)
}

// NewAndroid recognizes Gradle builds.
func NewAndroid(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Android,
		Name:    "Android",
		Markers: []string{"build.gradle", "build.gradle.kts", "settings.gradle", "settings.gradle.kts"},
		Patterns: []Pattern{
			{"build", "Gradle build output", true},
			{".gradle", "Gradle cache", true},
			{"app/build", "App module build output", true},
			{".cxx", "Native build cache", true},
			{"captures", "Android Studio captures", true},
			{".externalNativeBuild", "External native build", true},
			{"local.properties", "Local SDK path", true},
		},
	}, []GlobalPath{
		{".gradle/caches", "Global Gradle cache"},
		{".gradle/wrapper/dists", "Gradle wrapper distributions"},
	}, deps)
}

// NewRuby recognizes a Gemfile or gemspec.
func NewRuby(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Ruby,
		Name:    "Ruby",
		Markers: []string{"Gemfile", "*.gemspec"},
		Patterns: []Pattern{
			{"vendor/bundle", "Bundled gems", true},
			{".bundle", "Bundle cache", true},
			{"tmp", "Temporary files", true},
			{"log", "Log files", true},
		},
	}, nil, deps)
}

// NewPHP recognizes composer.json.
func NewPHP(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      PHP,
		Name:    "PHP",
		Markers: []string{"composer.json"},
		Patterns: []Pattern{
			{"vendor", "Composer dependencies", true},
			{"storage/framework/cache", "Laravel cache", true},
			{"bootstrap/cache", "Laravel bootstrap cache", true},
		},
	}, nil, deps)
}

// NewJava recognizes Maven and Gradle builds.
func NewJava(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Java,
		Name:    "Java",
		Markers: []string{"pom.xml", "build.gradle", "build.gradle.kts"},
		Patterns: []Pattern{
			{"target", "Maven build output", true},
			{"build", "Gradle build output", true},
			{".gradle", "Gradle cache", true},
			{"out", "IntelliJ output", true},
		},
	}, nil, deps)
}

// NewElixir recognizes mix.exs.
func NewElixir(deps Deps) Plugin {
	return NewBase(Descriptor{
		ID:      Elixir,
		Name:    "Elixir",
		Markers: []string{"mix.exs"},
		Patterns: []Pattern{
			{"_build", "Build artifacts", true},
			{"deps", "Dependencies", true},
			{".elixir_ls", "ElixirLS cache", true},
		},
	}, nil, deps)
}

// NewDotNet recognizes a project or solution file.
func NewDotNet(deps Deps) Plugin {
	return &dotNet{NewBase(Descriptor{
		ID:      DotNet,
		Name:    ".NET",
		Markers: []string{"*.csproj", "*.fsproj", "*.sln"},
		Patterns: []Pattern{
			{"bin", "Compiled binaries", true},
			{"obj", "Build intermediates", true},
			{"packages", "NuGet packages", true},
		},
	}, nil, deps)}
}

type dotNet struct{ *Base }

func (p *dotNet) Detect(path string) bool {
	return hasEntry(path, p.desc.Markers, func(e fs.DirEntry) bool {
		return e.Type().IsRegular()
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
