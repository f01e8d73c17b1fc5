package catalog

import (
	"fmt"
	"strings"
)

// AppType is the stream role of a generated application
type AppType string

const (
	AppTypeSource    AppType = "source"
	AppTypeProcessor AppType = "processor"
	AppTypeSink      AppType = "sink"
)

// ParseAppType parses an app type case-insensitively
func ParseAppType(s string) (AppType, error) {
	switch AppType(strings.ToLower(strings.TrimSpace(s))) {
	case AppTypeSource:
		return AppTypeSource, nil
	case AppTypeProcessor:
		return AppTypeProcessor, nil
	case AppTypeSink:
		return AppTypeSink, nil
	case "":
		return "", fmt.Errorf("%w: app type is required", ErrInvalidApp)
	default:
		return "", fmt.Errorf("%w: unknown app type %q (want source, processor or sink)", ErrInvalidApp, s)
	}
}

// DefaultContainerImageOrgName prefixes image names when a descriptor names no organization
const DefaultContainerImageOrgName = "springcloudstream"

// ContainerImageFormat is the image format written into the jib configuration
type ContainerImageFormat string

const (
	ContainerImageDocker ContainerImageFormat = "Docker"
	ContainerImageOCI    ContainerImageFormat = "OCI"
)

// ParseContainerImageFormat parses an image format. An empty string yields Docker.
func ParseContainerImageFormat(s string) (ContainerImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "docker":
		return ContainerImageDocker, nil
	case "oci":
		return ContainerImageOCI, nil
	default:
		return "", fmt.Errorf("%w: unknown container image format %q (want Docker or OCI)", ErrInvalidApp, s)
	}
}
