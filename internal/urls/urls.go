package urls

// Links printed alongside troubleshooting output. Centralized so they can
// be updated in one place before a release.

// PortalLegacy is the vendor's web portal for pre-2022 installations.
// Credentials used there are the credentials this client needs for v1.
const PortalLegacy = "https://mastertherm.vip-it.cz"

// PortalCurrent is the vendor's web portal for 2022+ installations (v2).
const PortalCurrent = "https://mastertherm.online"

// ProjectIssues is where backend format drift and unknown registers
// should be reported.
const ProjectIssues = "https://github.com/muurk/mastertherm/issues"

// ProjectReadme is the project documentation entry point.
const ProjectReadme = "https://github.com/muurk/mastertherm#readme"

// Portal returns the vendor portal matching an api version string.
func Portal(apiVersion string) string {
	if apiVersion == "v2" {
		return PortalCurrent
	}
	return PortalLegacy
}
