// Package cli implements the estatehub-admin command tree.
//
// Commands:
//
//	estatehub-admin hash-password [-cost 12] [-password p]   # stdin when -password is empty
//	estatehub-admin issue-token -user u -tenant t [-role AGENT] [-ttl 1h] [-json]
//	estatehub-admin verify-token -token tok
//	estatehub-admin generate-key
//
// Token commands sign with -secret or $ESTATEHUB_JWT_SECRET.
package cli
