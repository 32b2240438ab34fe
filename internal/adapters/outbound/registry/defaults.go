package registry

// defaultsYAML is the built-in capability table. The literal tool flags,
// ignore patterns and CI template text are configuration data; the
// orchestration layer never branches on ecosystem names.
var defaultsYAML = []byte(`
ecosystems:
  go-like:
    ignore_patterns: ["*.exe", "*.test", "*.out", "bin/", "dist/", ".env", "*.log", "coverage.out"]
    lint: { argv: ["go", "vet", "./..."], timeout_seconds: 120 }
    test: { argv: ["go", "test", "./..."], timeout_seconds: 300 }
    build: { argv: ["go", "build", "./..."], timeout_seconds: 300 }
    manifest: { file: "go.mod" }
    ci_workflow_file: "go.yml"
    ci_template: |
      name: ci
      on: [push, pull_request]
      jobs:
        build:
          runs-on: ubuntu-latest
          steps:
            - uses: actions/checkout@v4
            - uses: actions/setup-go@v5
              with: { go-version: stable }
            - run: go build ./...
            - run: go test ./...
    large_file_bytes: 1048576
  node-like:
    ignore_patterns: ["node_modules/", "dist/", "*.log", ".env", ".env.*", "coverage/"]
    lint: { argv: ["npm", "run", "lint"], timeout_seconds: 120 }
    test: { argv: ["npm", "test"], timeout_seconds: 300 }
    build: { argv: ["npm", "run", "build"], timeout_seconds: 300 }
    manifest: { file: "package.json", version_key: "version" }
    ci_workflow_file: "node.yml"
    ci_template: |
      name: ci
      on: [push, pull_request]
      jobs:
        build:
          runs-on: ubuntu-latest
          steps:
            - uses: actions/checkout@v4
            - uses: actions/setup-node@v4
              with: { node-version: lts/* }
            - run: npm ci
            - run: npm test
    large_file_bytes: 1048576
  python-like:
    ignore_patterns: ["__pycache__/", "*.pyc", ".venv/", "venv/", ".env", "*.egg-info/", "dist/"]
    lint: { argv: ["ruff", "check", "."], timeout_seconds: 120 }
    test: { argv: ["pytest"], timeout_seconds: 300 }
    manifest: { file: "pyproject.toml", version_key: "project.version" }
    ci_workflow_file: "python.yml"
    ci_template: |
      name: ci
      on: [push, pull_request]
      jobs:
        test:
          runs-on: ubuntu-latest
          steps:
            - uses: actions/checkout@v4
            - uses: actions/setup-python@v5
              with: { python-version: "3.12" }
            - run: pip install .
            - run: pytest
    large_file_bytes: 1048576
  rust-like:
    ignore_patterns: ["target/", "*.log", ".env"]
    lint: { argv: ["cargo", "clippy", "--", "-D", "warnings"], timeout_seconds: 300 }
    test: { argv: ["cargo", "test"], timeout_seconds: 600 }
    build: { argv: ["cargo", "build"], timeout_seconds: 600 }
    manifest: { file: "Cargo.toml", version_key: "package.version" }
    ci_workflow_file: "rust.yml"
    ci_template: |
      name: ci
      on: [push, pull_request]
      jobs:
        build:
          runs-on: ubuntu-latest
          steps:
            - uses: actions/checkout@v4
            - run: cargo build
            - run: cargo test
    large_file_bytes: 1048576
  jvm-like:
    ignore_patterns: ["target/", "build/", "*.class", "*.log", ".env"]
    test: { argv: ["mvn", "test"], timeout_seconds: 600 }
    build: { argv: ["mvn", "package", "-DskipTests"], timeout_seconds: 600 }
    manifest: { file: "pom.xml" }
    ci_workflow_file: "jvm.yml"
    ci_template: |
      name: ci
      on: [push, pull_request]
      jobs:
        build:
          runs-on: ubuntu-latest
          steps:
            - uses: actions/checkout@v4
            - uses: actions/setup-java@v4
              with: { distribution: temurin, java-version: "21" }
            - run: mvn package
    large_file_bytes: 2097152
`)
