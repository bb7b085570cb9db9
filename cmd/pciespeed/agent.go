package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mscrnt/pcie_speed/internal/config"
	"github.com/mscrnt/pcie_speed/pkg/agent"
	"github.com/mscrnt/pcie_speed/pkg/cert"
	"github.com/mscrnt/pcie_speed/pkg/scanner"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Remote link reporting agent",
		Long:  "Serve scan results over HTTP(S) and query remote agents",
	}

	cmd.AddCommand(agentServeCmd())
	cmd.AddCommand(agentQueryCmd())
	cmd.AddCommand(agentCertsCmd())

	return cmd
}

func agentServeCmd() *cobra.Command {
	var (
		flags    scanFlags
		host     string
		port     int
		certFile string
		keyFile  string
		caFile   string
		noDB     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent server",
		Long: `Start the pciespeed agent.

The agent exposes the following endpoints:
  /health   - Health check endpoint
  /sysinfo  - Host and memory information
  /devices  - Latest recorded scan, ?live=1 for a fresh scan, ?degraded=1 to filter

TLS is enabled by --cert/--key, client verification by --ca.

Examples:
  # Plain HTTP on the default port
  pciespeed agent serve

  # Mutual TLS
  pciespeed agent serve --cert server.crt --key server.key --ca ca.crt`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.apply(cmd, cfg)
			applyString(cmd, "host", host, &cfg.Agent.Host)
			applyString(cmd, "cert", certFile, &cfg.Agent.CertFile)
			applyString(cmd, "key", keyFile, &cfg.Agent.KeyFile)
			applyString(cmd, "ca", caFile, &cfg.Agent.CAFile)
			if cmd.Flags().Changed("port") {
				cfg.Agent.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			sc, err := newScanner(cfg)
			if err != nil {
				return err
			}

			var history agent.History
			if !noDB {
				database, err := openDB(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()
				history = database
			}

			server, err := agent.NewServer(agentConfig(cfg.Agent), sc, history)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Start()
			}()

			fmt.Println("Press Ctrl+C to stop...")

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown error: %w", err)
				}
				fmt.Println("Server stopped gracefully")
				return nil

			case err := <-errChan:
				return err
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&host, "host", "", "Address to listen on (default: all interfaces)")
	cmd.Flags().IntVar(&port, "port", config.DefaultAgentPort, "Port to listen on")
	cmd.Flags().StringVar(&certFile, "cert", "", "Server certificate file")
	cmd.Flags().StringVar(&keyFile, "key", "", "Server private key file")
	cmd.Flags().StringVar(&caFile, "ca", "", "CA certificate for client verification")
	cmd.Flags().BoolVar(&noDB, "live-only", false, "Serve live scans only, without the history database")

	return cmd
}

func agentQueryCmd() *cobra.Command {
	var (
		clientConfig = agent.DefaultClientConfig()
		live         bool
		raw          string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Fetch link reports from a remote agent",
		Long: `Fetch the device report of a remote agent and print it like a local scan.

Examples:
  # Latest recorded scan of a remote machine
  pciespeed agent query --host 192.168.1.100

  # Fresh scan over mutual TLS
  pciespeed agent query --host rig-01 --live \
    --cert client.crt --key client.key --ca ca.crt

  # Raw JSON from any endpoint
  pciespeed agent query --host rig-01 --raw sysinfo`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := agent.NewClient(clientConfig)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if raw != "" {
				data, err := client.Get(ctx, raw)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			}

			resp, err := client.Devices(ctx, live)
			if err != nil {
				return err
			}

			fmt.Printf("%s (%s, %s)\n\n", resp.Host, resp.Source, resp.Timestamp.Format(time.RFC3339))
			return scanner.Format(os.Stdout, &scanner.Result{
				Host:      resp.Host,
				StartedAt: resp.Timestamp,
				Devices:   resp.Devices,
				Warnings:  resp.Warnings,
			})
		},
	}

	cmd.Flags().StringVar(&clientConfig.Host, "host", clientConfig.Host, "Target host")
	cmd.Flags().IntVar(&clientConfig.Port, "port", clientConfig.Port, "Target port")
	cmd.Flags().StringVar(&clientConfig.CertFile, "cert", "", "Client certificate file")
	cmd.Flags().StringVar(&clientConfig.KeyFile, "key", "", "Client private key file")
	cmd.Flags().StringVar(&clientConfig.CAFile, "ca", "", "CA certificate for server verification, enables TLS")
	cmd.Flags().BoolVar(&live, "live", false, "Ask the agent for a fresh scan")
	cmd.Flags().StringVar(&raw, "raw", "", "Print the raw response of an endpoint")

	return cmd
}

func agentCertsCmd() *cobra.Command {
	var (
		dir    string
		hosts  []string
		client string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Generate mutual TLS certificates for agents",
		Long: `Create a CA with one server and one client certificate.

An existing CA in the output directory is reused unless --force is given.

Examples:
  # Certificates for an agent reachable as rig-01 and 10.0.0.5
  pciespeed agent certs --host rig-01 --host 10.0.0.5`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if dir == "" {
				dir = filepath.Join(config.DefaultDir(), "certs")
			}
			caCert := filepath.Join(dir, "ca.crt")
			caKey := filepath.Join(dir, "ca.key")

			issuer, err := loadOrCreateCA(caCert, caKey, force)
			if err != nil {
				return err
			}

			server, err := issuer.IssueServer(hosts)
			if err != nil {
				return err
			}
			if err := server.Save(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
				return err
			}

			cl, err := issuer.IssueClient(client)
			if err != nil {
				return err
			}
			if err := cl.Save(filepath.Join(dir, "client.crt"), filepath.Join(dir, "client.key")); err != nil {
				return err
			}

			fmt.Printf("Certificates written to %s\n", dir)
			fmt.Println("IMPORTANT: Keep ca.key secure and backed up!")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default: ~/.pciespeed/certs)")
	cmd.Flags().StringSliceVar(&hosts, "host", []string{"localhost", "127.0.0.1"}, "Agent host names or addresses")
	cmd.Flags().StringVar(&client, "client", "pciespeed-collector", "Client certificate name")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing CA")

	cmd.AddCommand(agentCertsVerifyCmd())

	return cmd
}

func agentCertsVerifyCmd() *cobra.Command {
	var (
		caFile  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "verify <cert-file>",
		Short: "Verify a certificate against the CA",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if caFile == "" {
				caFile = filepath.Join(config.DefaultDir(), "certs", "ca.crt")
			}

			result, err := cert.VerifyCertificateFile(args[0], caFile)
			if err != nil {
				return err
			}

			if jsonOut {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]interface{}{
					"valid": result.Valid,
					"role":  result.Role,
					"hosts": result.Hosts,
					"error": result.Error,
				})
			}

			fmt.Print(cert.FormatVerifyResult(result))
			if !result.Valid {
				return fmt.Errorf("certificate is not valid")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caFile, "ca", "", "CA certificate (default: ~/.pciespeed/certs/ca.crt)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func loadOrCreateCA(certPath, keyPath string, force bool) (*cert.Issuer, error) {
	if !force {
		if _, err := os.Stat(certPath); err == nil {
			return cert.LoadCA(certPath, keyPath)
		}
	}

	issuer, err := cert.NewIssuer()
	if err != nil {
		return nil, err
	}
	if err := issuer.SaveCA(certPath, keyPath); err != nil {
		return nil, err
	}
	return issuer, nil
}

func agentConfig(c config.AgentConfig) agent.Config {
	return agent.Config{
		Host:     c.Host,
		Port:     c.Port,
		CertFile: c.CertFile,
		KeyFile:  c.KeyFile,
		CAFile:   c.CAFile,
	}
}

func applyString(cmd *cobra.Command, flag, value string, dst *string) {
	if cmd.Flags().Changed(flag) {
		*dst = value
	}
}
