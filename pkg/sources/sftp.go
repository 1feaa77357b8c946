package sources

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/arthur-debert/refold/pkg/errors"
)

func (s SFTP) Fetch() ([]byte, error) {
	auth, err := agentAuth()
	if err != nil {
		return nil, err
	}
	hostKeys, err := knownHostsCallback()
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            s.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeys,
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", s.Host, s.port()), config)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not connect to %s", s.Host)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not start sftp session on %s", s.Host)
	}
	defer client.Close()

	file, err := client.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not open %s on %s", s.Path, s.Host)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not read %s from %s", s.Path, s.Host)
	}
	return data, nil
}

// agentAuth authenticates with the running ssh-agent. Password and key
// file authentication are intentionally unsupported: a manifest must
// never need credentials written next to it.
func agentAuth() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, errors.New(errors.ErrFetch,
			"sftp sources need a running ssh-agent (SSH_AUTH_SOCK is not set)")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFetch, "could not connect to ssh-agent")
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func knownHostsCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFetch, "could not locate home directory")
	}
	callback, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFetch,
			"could not load ~/.ssh/known_hosts for host verification")
	}
	return callback, nil
}
