// Package admincli implements the operator tool: creating the server key
// pair and minting admin tokens.
package admincli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/console"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/auth"
)

// newPassphrase is a test seam.
var newPassphrase = console.GetNewPassphrase

const usage = `usage:
  bkadmin keygen -o <keypair file>
  bkadmin token -s <secret> [-n operator] [-t minutes]
  bkadmin publiccode <account id>`

// Run executes one command and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "keygen":
		err = keygen(args[1:], stdout, stderr)
	case "token":
		err = token(args[1:], stdout, stderr)
	case "publiccode":
		err = publicCode(args[1:], stdout)
	default:
		err = fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func keygen(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "keypair.dat", "key pair file to create")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := newPassphrase(stderr)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	sec, err := cryptox.GenerateSecurity()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(*out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if err := cryptox.WriteKeyPair(f, sec, pw); err != nil {
		_ = f.Close()
		_ = os.Remove(*out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	code, err := cryptox.PublicCode(sec.AccountID())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "account: %s\npublic code: %s\n", sec.AccountID(), code)
	return nil
}

func token(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("s", "", "admin token secret (server -s)")
	operator := fs.String("n", "operator", "operator name recorded in the token")
	minutes := fs.Int("t", 15, "validity in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("token: -s is required")
	}

	tok, err := auth.GenerateAdminToken(*operator, []byte(*secret), time.Duration(*minutes)*time.Minute)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}

func publicCode(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("publiccode: exactly one account id expected")
	}
	code, err := cryptox.PublicCode(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, code)
	return nil
}
