package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

// secretEnv supplies the signing secret when -secret is not given
const secretEnv = "ESTATEHUB_JWT_SECRET"

func newHashPasswordCommand(in io.Reader, out io.Writer) *Command {
	cmd := &Command{
		Name:        "hash-password",
		Description: "Hash a password with bcrypt",
		Flags:       flag.NewFlagSet("hash-password", flag.ContinueOnError),
		out:         out,
	}

	password := cmd.Flags.String("password", "", "Password to hash (read from stdin when empty)")
	cost := cmd.Flags.Int("cost", 12, "bcrypt cost")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		plain := *password
		if plain == "" {
			line, err := readLine(in)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			plain = line
		}

		hash, err := auth.NewPasswordHasher(*cost).Hash(plain)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hash)
		return nil
	}

	return cmd
}

func newIssueTokenCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "issue-token",
		Description: "Issue a session token for a user",
		Flags:       flag.NewFlagSet("issue-token", flag.ContinueOnError),
		out:         out,
	}

	secret := cmd.Flags.String("secret", "", "Signing secret (defaults to $"+secretEnv+")")
	issuer := cmd.Flags.String("issuer", auth.DefaultIssuer, "Token issuer")
	ttl := cmd.Flags.Duration("ttl", time.Hour, "Token lifetime")
	userID := cmd.Flags.String("user", "", "User id")
	tenantID := cmd.Flags.String("tenant", "", "Tenant id")
	role := cmd.Flags.String("role", string(rbac.RoleViewer), "Role")
	asJSON := cmd.Flags.Bool("json", false, "Print the token and expiry as JSON")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *userID == "" || *tenantID == "" {
			return errors.New("-user and -tenant are required")
		}
		parsedRole, err := rbac.ParseRole(*role)
		if err != nil {
			return err
		}

		codec, err := newCodec(*secret, *issuer, *ttl)
		if err != nil {
			return err
		}
		token, expiresAt, err := codec.Issue(auth.Actor{
			ID:       *userID,
			TenantID: *tenantID,
			Role:     parsedRole,
			IsActive: true,
		})
		if err != nil {
			return err
		}

		if *asJSON {
			return json.NewEncoder(out).Encode(map[string]interface{}{
				"token":      token,
				"expires_at": expiresAt.Unix(),
			})
		}
		fmt.Fprintln(out, token)
		return nil
	}

	return cmd
}

func newVerifyTokenCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "verify-token",
		Description: "Verify a session token and print its actor",
		Flags:       flag.NewFlagSet("verify-token", flag.ContinueOnError),
		out:         out,
	}

	secret := cmd.Flags.String("secret", "", "Signing secret (defaults to $"+secretEnv+")")
	issuer := cmd.Flags.String("issuer", auth.DefaultIssuer, "Expected issuer")
	token := cmd.Flags.String("token", "", "Token to verify")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *token == "" {
			return errors.New("-token is required")
		}

		codec, err := newCodec(*secret, *issuer, 0)
		if err != nil {
			return err
		}
		actor, err := codec.Verify(*token)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(actor)
	}

	return cmd
}

func newGenerateKeyCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "generate-key",
		Description: "Generate an integration API key and its stored hash",
		Flags:       flag.NewFlagSet("generate-key", flag.ContinueOnError),
		out:         out,
	}

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		key, hash, prefix, err := auth.NewKeyGenerator().GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "key:    %s\n", key)
		fmt.Fprintf(out, "hash:   %s\n", hash)
		fmt.Fprintf(out, "prefix: %s\n", prefix)
		return nil
	}

	return cmd
}

func newCodec(secret, issuer string, ttl time.Duration) (*auth.SessionCodec, error) {
	if secret == "" {
		secret = os.Getenv(secretEnv)
	}
	if secret == "" {
		return nil, fmt.Errorf("a signing secret is required (-secret or $%s)", secretEnv)
	}
	return auth.NewSessionCodec(secret, issuer, ttl)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty input")
	}
	return line, nil
}
