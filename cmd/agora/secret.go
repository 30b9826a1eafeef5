package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mvlachos/agora/internal/store"
	"github.com/mvlachos/agora/internal/vault"
)

func runSecret(args []string) error {
	if len(args) == 0 {
		printSecretUsage()
		return nil
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	// list and delete work on metadata only; set and get need the key.
	var v *vault.Vault
	needsVault := args[0] == "set" || args[0] == "get"
	if needsVault {
		if cfg.Vault.Passphrase == "" {
			return fmt.Errorf("AGORA_VAULT_PASSPHRASE environment variable is required")
		}
		v = vault.New(cfg.Vault.Passphrase)
	}

	switch args[0] {
	case "list":
		return secretList(db)
	case "set":
		return secretSet(db, v, args[1:])
	case "get":
		return secretGet(db, v, args[1:])
	case "delete":
		return secretDelete(db, args[1:])
	default:
		printSecretUsage()
		return fmt.Errorf("unknown secret command: %s", args[0])
	}
}

func printSecretUsage() {
	fmt.Fprintf(os.Stderr, `Usage: agora secret <command>

Commands:
  list                                              List secrets (metadata only)
  set <name> --value <str> [--description <text>]   Store an encrypted secret
  get <name>                                        Retrieve and decrypt a secret
  delete <name>                                     Delete a secret

Agents reference secrets from config as env values: "secret:<name>".

Environment:
  AGORA_VAULT_PASSPHRASE          Required for set/get. Encryption passphrase.
`)
}

func secretList(db *store.Store) error {
	secrets, err := db.ListSecrets()
	if err != nil {
		return err
	}
	if len(secrets) == 0 {
		fmt.Println("No secrets stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tUPDATED")
	for _, s := range secrets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Description, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func secretSet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) < 3 || args[1] != "--value" {
		return fmt.Errorf("usage: agora secret set <name> --value <string> [--description <text>]")
	}

	name := args[0]
	value := []byte(args[2])

	description := ""
	for i := 3; i < len(args)-1; i++ {
		if args[i] == "--description" {
			description = args[i+1]
			break
		}
	}

	ciphertext, nonce, err := v.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	if err := db.SaveSecret(&store.Secret{
		Name:        name,
		Description: description,
		Value:       ciphertext,
		Nonce:       nonce,
	}); err != nil {
		return err
	}
	fmt.Printf("Secret %q saved\n", name)
	return nil
}

func secretGet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agora secret get <name>")
	}

	sec, err := db.GetSecret(args[0])
	if err != nil {
		return err
	}
	if sec == nil {
		return fmt.Errorf("secret %q not found", args[0])
	}

	plaintext, err := v.Decrypt(sec.Value, sec.Nonce)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	fmt.Print(string(plaintext))
	if len(plaintext) > 0 && plaintext[len(plaintext)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func secretDelete(db *store.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: agora secret delete <name>")
	}
	if err := db.DeleteSecret(args[0]); err != nil {
		return err
	}
	fmt.Printf("Secret %q deleted\n", args[0])
	return nil
}
