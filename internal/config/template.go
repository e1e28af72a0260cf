package config

import (
	"fmt"
	"os"
)

// documentedTemplate is the starter deploy.yaml written by `asantiya init`.
// The comments are part of the product: they document the schema in place.
const documentedTemplate = `# Main application configuration
service: %s
image: %s
# Port mappings (host:container)
app_ports: "8020:8020"
# Build configuration
builder:
  # Target architecture (amd64/arm64/armv7)
  arch: amd64
  # Remote build server (SSH connection string), e.g. ssh://deploy@server
  remote: ""
  # Local build flag
  local: true
  # Build context directory containing the Dockerfile
  dockerfile: .
# Container services definitions
accessories:
  db:
    # PostgreSQL database service
    service: %s-db
    image: postgres:13
    # Port mapping (host:container)
    ports: "5432:5432"
    # Container behavior options
    options:
      # Restart policy (always/unless-stopped/on-failure/no)
      restart: always
    # Environment variables
    env:
      POSTGRES_PASSWORD: change-me
    # Volume mounts (host_path:container_path[:ro])
    volumes:
      - db_data:/var/lib/postgresql/data
    # Network connection
    network: %s-network
`

// WriteTemplate writes a documented starter configuration to path.
// It refuses to overwrite an existing file unless force is set.
func WriteTemplate(path, service string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
		}
	}
	content := fmt.Sprintf(documentedTemplate, service, service, service, service)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
