package internal

import (
	"os"
	"os/user"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/rs/zerolog/log"
)

var sensitiveRegex = regexp.MustCompile(`(?i)(PASSWORD|API_KEY|ACCESS_KEY|SECRET|TOKEN)`)

func ShowVersion() {
	log.Info().Str("version", versioninfo.Short()).Msg("image-watermarker")
}

func EnvironmentVars() {
	environ := os.Environ()
	sort.Slice(environ, func(i, j int) bool {
		keyI, _, _ := strings.Cut(environ[i], "=")
		keyJ, _, _ := strings.Cut(environ[j], "=")
		return keyI < keyJ
	})

	event := log.Debug()
	for _, entry := range environ {
		key, value, _ := strings.Cut(entry, "=")
		event = event.Str(key, MaskSensitive(key, value))
	}
	event.Msg("environment variables")
}

// MaskSensitive hides values of variables that look like credentials.
func MaskSensitive(key, value string) string {
	if sensitiveRegex.MatchString(key) {
		return "********"
	}
	return value
}

func UserInfo() {
	event := log.Info().Int("pid", os.Getpid())

	currentUser, err := user.Current()
	if err != nil {
		log.Warn().Err(err).Msg("error getting current user")
	} else {
		event = event.Str("uid", currentUser.Uid).Str("user", currentUser.Username).Str("gid", currentUser.Gid)
	}

	groups, err := os.Getgroups()
	if err != nil {
		log.Warn().Err(err).Msg("error getting groups")
	} else {
		groupNames := make([]string, 0, len(groups))
		for _, gid := range groups {
			group, err := user.LookupGroupId(strconv.Itoa(gid))
			if err != nil {
				groupNames = append(groupNames, strconv.Itoa(gid))
			} else {
				groupNames = append(groupNames, group.Name+"("+group.Gid+")")
			}
		}
		event = event.Strs("groups", groupNames)
	}

	event.Msg("process info")
}
