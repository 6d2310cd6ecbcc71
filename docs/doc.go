// Package docs provides generated OpenAPI documentation.
//
// Marquee API
//
//	@title			Marquee API
//	@version		1.0
//	@description	Extract structured data from concert poster images with an image-understanding model.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/marquee
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/marquee/serve.go -o ./swagger --outputTypes go --parseDependency --parseInternal
