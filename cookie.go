package authgate

import "strings"

// ResolveCookieDomain computes the effective cookie domain for serverHost.
// An empty result means "use the platform default".
//
// When useServerDomain is false, or serverHost carries no dot, the platform
// default applies. Otherwise the domain starts at the first dot of serverHost
// (inclusive). With subDomainLevel >= 2 the domain is truncated to its last
// subDomainLevel labels: walking backwards from the end, one dot per level;
// if a step finds no further dot the walk stops early and the best cut found
// so far is used.
//
//	ResolveCookieDomain("h.wea.pyrube.com", true, 2) == ".pyrube.com"
//	ResolveCookieDomain("h.wea.pyrube.com", true, 0) == ".wea.pyrube.com"
func ResolveCookieDomain(serverHost string, useServerDomain bool, subDomainLevel int) string {
	if !useServerDomain {
		return ""
	}
	first := strings.IndexByte(serverHost, '.')
	if first < 0 {
		return ""
	}

	domain := serverHost[first:]
	if subDomainLevel >= 2 {
		pos := len(domain)
		cut := -1
		for level := 0; level < subDomainLevel; level++ {
			dot := strings.LastIndexByte(domain[:pos], '.')
			if dot < 0 {
				break
			}
			cut = dot
			pos = dot
		}
		if cut >= 0 {
			domain = domain[cut:]
		}
	}
	return domain
}

// CookieDomain resolves the cookie domain for serverHost under the gate's
// cookie configuration.
func (g *Gate) CookieDomain(serverHost string) string {
	return ResolveCookieDomain(serverHost, g.config.Cookie.UseServerDomain, g.config.Cookie.SubDomainLevel)
}
