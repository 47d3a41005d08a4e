package main

// General API documentation for swaggo. Run `swag init` with
// -tags=swagger builds to regenerate the docs package.
//
// @title           nucleusd ops API
// @version         1.0
// @description     Read-only operational surface of the nucleusd application host.
//
// @contact.name   nucleusd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
